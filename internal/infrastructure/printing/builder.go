package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/invoicer/internal/domain/invoicing"
	"github.com/erp/invoicer/internal/infrastructure/logger"
	"github.com/erp/invoicer/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	titleFont  = 20
	labelFont  = 11
	totalFont  = 12
	textOffset = 3 // baseline sits this far below a row's vertical middle
)

// DocumentBuilderConfig contains configuration for the document builder
type DocumentBuilderConfig struct {
	Layout InvoiceLayout
	// Images resolves product images (default: ImageEmbedder with default settings)
	Images ImageSource
	// FetchConcurrency is the number of image fetches in flight (default: 1, sequential)
	FetchConcurrency int
	// GenerationTimeout bounds image resolution for one invoice. Rows still
	// unresolved when it expires fall back to the placeholder box.
	GenerationTimeout time.Duration
	// DisableCompression writes uncompressed content streams
	DisableCompression bool
	Logger             *zap.Logger
}

// DocumentBuilder lays an order out on a single PDF page
type DocumentBuilder struct {
	layout             InvoiceLayout
	images             ImageSource
	concurrency        int
	timeout            time.Duration
	disableCompression bool
	logger             *zap.Logger
}

// NewDocumentBuilder creates a new document builder
func NewDocumentBuilder(config *DocumentBuilderConfig) *DocumentBuilder {
	if config == nil {
		config = &DocumentBuilderConfig{Layout: DefaultInvoiceLayout()}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	layout := config.Layout.withDefaults()
	images := config.Images
	if images == nil {
		images = NewImageEmbedder(&ImageEmbedderConfig{
			Footprint: layout.ImageFootprint,
			Logger:    logger,
		})
	}
	concurrency := config.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &DocumentBuilder{
		layout:             layout,
		images:             images,
		concurrency:        concurrency,
		timeout:            config.GenerationTimeout,
		disableCompression: config.DisableCompression,
		logger:             logger,
	}
}

// Layout returns the effective layout
func (b *DocumentBuilder) Layout() InvoiceLayout {
	return b.layout
}

// Generate renders the order to PDF. Image failures degrade single rows and
// never fail the call; a cancelled context or an encoding failure does.
func (b *DocumentBuilder) Generate(ctx context.Context, order *invoicing.Order) (*Document, error) {
	if order == nil {
		return nil, NewRenderError(ErrCodeInvalidOrder, "order is nil", nil)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "render",
		telemetry.WithAttribute("order_id", order.ID.String()),
		telemetry.WithAttribute("line_items", len(order.LineItems)),
	)
	defer span.End()

	start := time.Now()

	images := b.resolveImages(ctx, order)

	if err := ctx.Err(); err != nil {
		renderErr := NewRenderError(ErrCodeRenderTimeout, "invoice generation cancelled", err)
		telemetry.RecordError(span, renderErr)
		return nil, renderErr
	}

	canvas := NewCanvas(CanvasConfig{
		Page:               b.layout.Page,
		Title:              "Invoice " + order.ID.String(),
		Author:             b.layout.StoreName,
		Subject:            "Order " + order.ID.String(),
		Creator:            "invoicer",
		CreatedAt:          order.CreatedAt,
		DisableCompression: b.disableCompression,
	})
	result := b.compose(canvas, order, images)

	log := logger.WithLogger(ctx, b.logger)
	for _, row := range result.Rows {
		if row.Image.IsFallback() {
			log.Warn("Product image unavailable, using placeholder",
				zap.String("order_id", order.ID.String()),
				zap.Int("row", row.Index),
				zap.String("url", row.URL),
				zap.String("error_code", invoicing.ErrCodeImageUnavailable),
				zap.Error(row.Image.Err),
			)
		}
	}

	data, err := Encode(canvas)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	doc := &Document{
		orderID:      order.ID,
		data:         data,
		encoded:      EncodeBase64(data),
		grandTotal:   result.GrandTotal,
		rows:         len(result.Rows),
		fallbackRows: result.Fallbacks,
	}

	telemetry.SetAttributes(span,
		"size", doc.Size(),
		"fallback_rows", doc.FallbackRows(),
	)
	telemetry.SetOK(span)

	log.Info("Invoice generated",
		zap.String("order_id", order.ID.String()),
		zap.Int("size", doc.Size()),
		zap.Int("rows", doc.Rows()),
		zap.Int("fallback_rows", doc.FallbackRows()),
		zap.Duration("duration", time.Since(start)),
	)

	return doc, nil
}

func (b *DocumentBuilder) resolveImages(ctx context.Context, order *invoicing.Order) []EmbeddedImage {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "resolve_images",
		telemetry.WithAttribute("concurrency", b.concurrency),
	)
	defer span.End()

	// The generation deadline only bounds fetching; expiry turns the remaining rows into placeholders.
	fetchCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	urls := make([]string, len(order.LineItems))
	for i, item := range order.LineItems {
		urls[i] = item.ProductImageURL
	}
	return ResolveImages(fetchCtx, b.images, urls, b.concurrency)
}

// Composition summarizes what compose drew
type Composition struct {
	Rows       []RenderedRow
	GrandTotal int64
	Fallbacks  int
	// Bottom is the lowest y coordinate drawn on
	Bottom float64
}

// compose draws the whole invoice onto s. It performs no I/O: images must
// already be resolved, one entry per line item in order.
func (b *DocumentBuilder) compose(s Surface, order *invoicing.Order, images []EmbeddedImage) Composition {
	l := b.layout
	page := l.Page

	s.SetCursor(page.Top())
	b.drawHeaderBoxes(s, order)
	s.Advance(l.HeaderBoxHeight)

	// Title, order id and date
	s.Advance(40)
	s.DrawText(page.Margin, s.Cursor(), "Invoice", BoldFont.WithSize(titleFont))
	s.Advance(18)
	s.DrawText(page.Margin, s.Cursor(), "Order: "+order.ID.String(), RegularFont)
	s.Advance(l.LineHeight)
	s.DrawText(page.Margin, s.Cursor(), "Date: "+order.CreatedAt.Format(l.DateLayout), RegularFont)

	// Table header
	s.Advance(30)
	header := s.Cursor()
	s.DrawText(l.Columns.Image, header, "Product", BoldFont)
	s.DrawText(l.Columns.Quantity, header, "Quantity", BoldFont)
	s.DrawText(l.Columns.UnitPrice, header, "Unit price", BoldFont)
	s.DrawText(l.Columns.Total, header, "Total", BoldFont)
	s.Advance(6)
	s.DrawLine(page.Margin, s.Cursor(), page.Right(), s.Cursor())

	rows, total := foldRows(s, l, order.LineItems, images)
	rows, bottom := placeRows(rows, s.Cursor(), l.RowHeight())

	fallbacks := 0
	for i := range rows {
		if !b.drawRow(s, &rows[i]) {
			fallbacks++
		}
	}
	s.SetCursor(bottom)

	// Totals
	s.Advance(6)
	s.DrawLine(page.Margin, s.Cursor(), page.Right(), s.Cursor())
	s.Advance(20)
	s.DrawText(l.Columns.UnitPrice, s.Cursor(), "Total", BoldFont.WithSize(totalFont))
	s.DrawText(l.Columns.Total, s.Cursor(), invoicing.FormatMinor(total, l.CurrencySymbol), BoldFont.WithSize(totalFont))

	return Composition{
		Rows:       rows,
		GrandTotal: total,
		Fallbacks:  fallbacks,
		Bottom:     s.Cursor(),
	}
}

// drawRow draws one table row and reports whether its image was placed.
// A raster the surface rejects is replaced by the placeholder box.
func (b *DocumentBuilder) drawRow(s Surface, row *RenderedRow) bool {
	l := b.layout
	box := l.ImageFootprint
	boxBottom := row.Top - l.RowPadding/2 - box

	placed := false
	if !row.Image.IsFallback() {
		w, h := row.Image.Raster.Fit(box)
		x := l.Columns.Image + (box-w)/2
		y := boxBottom + (box-h)/2
		if err := s.DrawImage(fmt.Sprintf("row-%d", row.Index), row.Image.Raster, x, y, w, h); err != nil {
			row.Image = Fallback(&ImageError{URL: row.URL, Cause: err})
		} else {
			placed = true
		}
	}
	if !placed {
		s.DrawRect(l.Columns.Image, boxBottom, box, box)
	}

	baseline := row.Top - l.RowHeight()/2 - textOffset
	s.DrawText(l.Columns.Name, baseline, row.Name, RegularFont)
	s.DrawText(l.Columns.Quantity, baseline, row.Quantity, RegularFont)
	s.DrawText(l.Columns.UnitPrice, baseline, row.UnitPrice, RegularFont)
	s.DrawText(l.Columns.Total, baseline, row.Total, RegularFont)
	return placed
}

// drawHeaderBoxes draws the store box and the billed-to box side by side.
// The billed-to box has no address line when the order has no billing address.
func (b *DocumentBuilder) drawHeaderBoxes(s Surface, order *invoicing.Order) {
	l := b.layout
	top := s.Cursor()
	width := l.HeaderBoxWidth()

	store := []string{l.StoreName}
	store = append(store, l.StoreAddressLines...)
	if l.StoreEmail != "" {
		store = append(store, l.StoreEmail)
	}
	b.drawBox(s, l.Page.Margin, top, width, store)

	billed := []string{"Billed to", order.Customer.FullName(), order.Customer.Email}
	if order.HasBillingAddress() {
		billed = append(billed, order.BillingAddress.Line())
	}
	b.drawBox(s, l.Page.Margin+width+l.HeaderGap, top, width, billed)
}

// drawBox draws a bordered box whose first line is a bold label. Lines that
// would cross the bottom edge are dropped.
func (b *DocumentBuilder) drawBox(s Surface, x, top, width float64, lines []string) {
	l := b.layout
	bottom := top - l.HeaderBoxHeight
	s.DrawRect(x, bottom, width, l.HeaderBoxHeight)

	inner := width - 2*l.BoxPadding
	y := top - 18
	for i, line := range lines {
		if i > 0 && line == "" {
			continue
		}
		if y < bottom+l.BoxPadding {
			break
		}
		font := RegularFont
		if i == 0 {
			font = BoldFont.WithSize(labelFont)
		}
		s.DrawText(x+l.BoxPadding, y, l.truncate(s, line, inner, font), font)
		y -= l.LineHeight
	}
}
