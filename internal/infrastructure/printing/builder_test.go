package printing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/erp/invoicer/internal/domain/invoicing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func resolved(t *testing.T) []EmbeddedImage {
	return []EmbeddedImage{
		{Raster: testRaster(t, 200, 100)},
		{Raster: testRaster(t, 200, 100)},
	}
}

func TestDocumentBuilder_Compose_Totals(t *testing.T) {
	b := NewDocumentBuilder(nil)
	s := &recordingSurface{}

	result := b.compose(s, testOrder(), resolved(t))

	assert.Equal(t, int64(6000), result.GrandTotal)
	assert.Len(t, result.Rows, 2)
	assert.Zero(t, result.Fallbacks)

	texts := s.texts()
	assert.Contains(t, texts, "2.50 €")
	assert.Contains(t, texts, "5.00 €")
	assert.Contains(t, texts, "1.00 €")
	assert.Equal(t, "6.00 €", texts[len(texts)-1])
	assert.Equal(t, "Total", texts[len(texts)-2])
}

func TestDocumentBuilder_Compose_EmptyOrder(t *testing.T) {
	b := NewDocumentBuilder(nil)
	s := &recordingSurface{}
	order := testOrder()
	order.LineItems = nil

	result := b.compose(s, order, nil)

	assert.Empty(t, result.Rows)
	assert.Zero(t, result.GrandTotal)
	texts := s.texts()
	assert.Equal(t, "0.00 €", texts[len(texts)-1])
	assert.Contains(t, texts, "Product")
	assert.Contains(t, texts, "Quantity")
	assert.Contains(t, texts, "Unit price")

	// only the two header boxes
	assert.Len(t, s.find("rect", nil), 2)
	assert.Empty(t, s.find("image", nil))
}

func TestDocumentBuilder_Compose_RowHeightStable(t *testing.T) {
	b := NewDocumentBuilder(nil)
	s := &recordingSurface{}
	images := []EmbeddedImage{
		Fallback(errors.New("unreachable")),
		{Raster: testRaster(t, 200, 100)},
	}

	result := b.compose(s, testOrder(), images)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, 1, result.Fallbacks)

	rowHeight := b.Layout().RowHeight()
	assert.Equal(t, 50.0, rowHeight)
	assert.InDelta(t, rowHeight, result.Rows[0].Top-result.Rows[1].Top, 1e-9)

	// fallback box occupies the full image footprint of row 0
	first := result.Rows[0]
	boxes := s.find("rect", func(op drawOp) bool { return op.w == 40 && op.h == 40 })
	require.Len(t, boxes, 1)
	assert.InDelta(t, 40.0, boxes[0].x, 1e-9)
	assert.InDelta(t, first.Top-5-40, boxes[0].y, 1e-9)

	// resolved image of row 1 is centered inside the same footprint
	placed := s.find("image", nil)
	require.Len(t, placed, 1)
	assert.Equal(t, "row-1", placed[0].name)
	assert.InDelta(t, 40.0, placed[0].w, 1e-9)
	assert.InDelta(t, 20.0, placed[0].h, 1e-9)
	assert.InDelta(t, result.Rows[1].Top-5-40+10, placed[0].y, 1e-9)

	// text baselines advance by exactly one row height
	names := s.find("text", func(op drawOp) bool { return op.text == "Notebook" || op.text == "Pencil" })
	require.Len(t, names, 2)
	assert.InDelta(t, rowHeight, names[0].y-names[1].y, 1e-9)
}

func TestDocumentBuilder_Compose_BillingAddress(t *testing.T) {
	b := NewDocumentBuilder(nil)

	t.Run("with address", func(t *testing.T) {
		s := &recordingSurface{}
		b.compose(s, testOrder(), resolved(t))
		assert.Contains(t, s.texts(), "12 Rue de Rivoli, 75001 Paris, France")
	})

	t.Run("without address only the address line is missing", func(t *testing.T) {
		with := &recordingSurface{}
		b.compose(with, testOrder(), resolved(t))

		order := testOrder()
		order.BillingAddress = nil
		without := &recordingSurface{}
		b.compose(without, order, resolved(t))

		texts := without.texts()
		assert.Contains(t, texts, "Billed to")
		assert.Contains(t, texts, "Ada Lovelace")
		assert.Contains(t, texts, "ada@example.com")
		for _, text := range texts {
			assert.NotContains(t, text, "Rivoli")
		}
		assert.Len(t, texts, len(with.texts())-1)
	})
}

func TestDocumentBuilder_Compose_TruncatesNames(t *testing.T) {
	b := NewDocumentBuilder(nil)
	s := &recordingSurface{}
	order := testOrder()
	long := strings.Repeat("x", 60)
	order.LineItems[0].ProductName = long

	result := b.compose(s, order, resolved(t))

	// 232pt column at 5pt per rune keeps 46 runes
	assert.Equal(t, strings.Repeat("x", 46)+Ellipsis, result.Rows[0].Name)
	assert.Equal(t, "Pencil", result.Rows[1].Name)
}

func TestDocumentBuilder_Compose_StrictEllipsis(t *testing.T) {
	layout := DefaultInvoiceLayout()
	layout.StrictEllipsis = true
	b := NewDocumentBuilder(&DocumentBuilderConfig{Layout: layout})
	s := &recordingSurface{}
	order := testOrder()
	order.LineItems[0].ProductName = strings.Repeat("x", 60)

	result := b.compose(s, order, resolved(t))

	assert.Equal(t, strings.Repeat("x", 43)+Ellipsis, result.Rows[0].Name)
}

func TestDocumentBuilder_Compose_RejectedRasterFallsBack(t *testing.T) {
	b := NewDocumentBuilder(nil)
	s := &recordingSurface{rejectImages: true}

	result := b.compose(s, testOrder(), resolved(t))

	assert.Equal(t, 2, result.Fallbacks)
	for _, row := range result.Rows {
		assert.True(t, row.Image.IsFallback())
		assert.Error(t, row.Image.Err)
	}
	assert.Len(t, s.find("rect", func(op drawOp) bool { return op.w == 40 && op.h == 40 }), 2)
	assert.Equal(t, int64(6000), result.GrandTotal)
}

func newTestBuilder(t *testing.T, src ImageSource, logger *zap.Logger) *DocumentBuilder {
	t.Helper()
	return NewDocumentBuilder(&DocumentBuilderConfig{
		Layout: DefaultInvoiceLayout(),
		Images: src,
		Logger: logger,
	})
}

func TestDocumentBuilder_Generate(t *testing.T) {
	src := &stubSource{results: map[string]EmbeddedImage{
		"https://img.test/b.png": {Raster: testRaster(t, 120, 120)},
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	b := newTestBuilder(t, src, zap.New(core))

	doc, err := b.Generate(context.Background(), testOrder())
	require.NoError(t, err)

	assert.Equal(t, testOrder().ID, doc.OrderID())
	assert.Equal(t, int64(6000), doc.GrandTotalMinor())
	assert.Equal(t, 2, doc.Rows())
	assert.Equal(t, 1, doc.FallbackRows())

	data := doc.Bytes()
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, len(data), doc.Size())

	decoded, err := DecodeBase64(doc.Encoded())
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	// fonts are embedded once each, one image per resolved row
	assert.Equal(t, 2, bytes.Count(data, []byte("/BaseFont /Helvetica")))
	assert.Equal(t, 1, bytes.Count(data, []byte("/BaseFont /Helvetica-Bold")))
	assert.Equal(t, 1, bytes.Count(data, []byte("/Subtype /Image")))

	// fetches are sequential and in line-item order
	assert.Equal(t, []string{"https://img.test/a.png", "https://img.test/b.png"}, src.calls)

	warnings := logs.FilterMessage("Product image unavailable, using placeholder").All()
	require.Len(t, warnings, 1)
	fields := warnings[0].ContextMap()
	assert.Equal(t, "https://img.test/a.png", fields["url"])
	assert.Equal(t, int64(0), fields["row"])
	assert.Equal(t, invoicing.ErrCodeImageUnavailable, fields["error_code"])
}

func TestDocumentBuilder_Generate_Idempotent(t *testing.T) {
	src := &stubSource{results: map[string]EmbeddedImage{
		"https://img.test/a.png": {Raster: testRaster(t, 64, 32)},
		"https://img.test/b.png": {Raster: testRaster(t, 32, 64)},
	}}
	b := newTestBuilder(t, src, nil)

	first, err := b.Generate(context.Background(), testOrder())
	require.NoError(t, err)
	second, err := b.Generate(context.Background(), testOrder())
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first.Bytes(), second.Bytes()))
	assert.Equal(t, first.Encoded(), second.Encoded())
	assert.Equal(t, 2, bytes.Count(first.Bytes(), []byte("/Subtype /Image")))
}

func TestDocumentBuilder_Generate_EmptyOrder(t *testing.T) {
	b := newTestBuilder(t, &stubSource{}, nil)
	order := testOrder()
	order.LineItems = []invoicing.LineItem{}

	doc, err := b.Generate(context.Background(), order)
	require.NoError(t, err)
	assert.Zero(t, doc.Rows())
	assert.Zero(t, doc.GrandTotalMinor())
	assert.True(t, bytes.HasPrefix(doc.Bytes(), []byte("%PDF-")))
}

func TestDocumentBuilder_Generate_Errors(t *testing.T) {
	b := newTestBuilder(t, &stubSource{}, nil)

	t.Run("nil order", func(t *testing.T) {
		doc, err := b.Generate(context.Background(), nil)
		assert.Nil(t, doc)

		var renderErr *RenderError
		require.True(t, errors.As(err, &renderErr))
		assert.Equal(t, ErrCodeInvalidOrder, renderErr.Code)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		doc, err := b.Generate(ctx, testOrder())
		assert.Nil(t, doc)

		var renderErr *RenderError
		require.True(t, errors.As(err, &renderErr))
		assert.Equal(t, ErrCodeRenderTimeout, renderErr.Code)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// blockingSource never answers before the context ends
type blockingSource struct{}

func (blockingSource) Embed(ctx context.Context, rawURL string) EmbeddedImage {
	<-ctx.Done()
	return Fallback(ctx.Err())
}

func TestDocumentBuilder_Generate_DeadlineFallsBack(t *testing.T) {
	b := NewDocumentBuilder(&DocumentBuilderConfig{
		Layout:            DefaultInvoiceLayout(),
		Images:            blockingSource{},
		GenerationTimeout: 50 * time.Millisecond,
	})

	start := time.Now()
	doc, err := b.Generate(context.Background(), testOrder())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 2, doc.FallbackRows())
	assert.Equal(t, int64(6000), doc.GrandTotalMinor())
}
