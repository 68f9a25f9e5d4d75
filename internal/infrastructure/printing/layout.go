package printing

import (
	"strconv"

	"github.com/erp/invoicer/internal/domain/invoicing"
)

// TableColumns holds the fixed x offsets, in points, of the line-item table
type TableColumns struct {
	Image     float64
	Name      float64
	NameWidth float64
	Quantity  float64
	UnitPrice float64
	Total     float64
}

// InvoiceLayout is the fixed geometry and static text of an invoice page
type InvoiceLayout struct {
	Page PageGeometry

	StoreName         string
	StoreAddressLines []string
	StoreEmail        string

	CurrencySymbol string
	// DateLayout is a Go time layout for the order creation date
	DateLayout string
	// StrictEllipsis keeps truncated names plus the ellipsis inside the column
	StrictEllipsis bool

	HeaderBoxHeight float64
	HeaderGap       float64
	BoxPadding      float64
	LineHeight      float64

	ImageFootprint float64
	RowPadding     float64
	Columns        TableColumns
}

// DefaultInvoiceLayout returns the A4 layout used when nothing is configured
func DefaultInvoiceLayout() InvoiceLayout {
	return InvoiceLayout{
		Page:            A4Page,
		StoreName:       "Invoicer Store",
		CurrencySymbol:  "€",
		DateLayout:      "02/01/2006",
		HeaderBoxHeight: 96,
		HeaderGap:       16,
		BoxPadding:      10,
		LineHeight:      14,
		ImageFootprint:  40,
		RowPadding:      10,
		Columns: TableColumns{
			Image:     40,
			Name:      88,
			NameWidth: 232,
			Quantity:  330,
			UnitPrice: 400,
			Total:     480,
		},
	}
}

// withDefaults fills zero-valued geometry from the default layout
func (l InvoiceLayout) withDefaults() InvoiceLayout {
	d := DefaultInvoiceLayout()
	if l.Page.Width == 0 || l.Page.Height == 0 {
		l.Page = d.Page
	}
	if l.DateLayout == "" {
		l.DateLayout = d.DateLayout
	}
	if l.HeaderBoxHeight <= 0 {
		l.HeaderBoxHeight = d.HeaderBoxHeight
	}
	if l.HeaderGap <= 0 {
		l.HeaderGap = d.HeaderGap
	}
	if l.BoxPadding <= 0 {
		l.BoxPadding = d.BoxPadding
	}
	if l.LineHeight <= 0 {
		l.LineHeight = d.LineHeight
	}
	if l.ImageFootprint <= 0 {
		l.ImageFootprint = d.ImageFootprint
	}
	if l.RowPadding < 0 {
		l.RowPadding = d.RowPadding
	}
	if l.Columns == (TableColumns{}) {
		l.Columns = d.Columns
	}
	return l
}

// RowHeight is the vertical advance of every table row, image or fallback
func (l InvoiceLayout) RowHeight() float64 {
	return l.ImageFootprint + l.RowPadding
}

// HeaderBoxWidth is the width of each of the two header boxes
func (l InvoiceLayout) HeaderBoxWidth() float64 {
	return (l.Page.ContentWidth() - l.HeaderGap) / 2
}

func (l InvoiceLayout) truncate(m Measurer, text string, maxWidth float64, font Font) string {
	if l.StrictEllipsis {
		return TruncateStrict(m, text, maxWidth, font)
	}
	return Truncate(m, text, maxWidth, font)
}

// RenderedRow is the laid-out form of one line item
type RenderedRow struct {
	Index     int
	Name      string
	URL       string
	Image     EmbeddedImage
	Quantity  string
	UnitPrice string
	Total     string
	Subtotal  int64
	// Top is the y coordinate of the row's upper edge
	Top float64
}

// foldRows turns line items and their resolved images into rows, accumulating
// the grand total in minor units. Nothing is formatted before the sum is taken.
func foldRows(m Measurer, layout InvoiceLayout, items []invoicing.LineItem, images []EmbeddedImage) ([]RenderedRow, int64) {
	rows := make([]RenderedRow, 0, len(items))
	var total int64
	for i, item := range items {
		img := Fallback(nil)
		if i < len(images) {
			img = images[i]
		}
		subtotal := item.Subtotal()
		total += subtotal
		rows = append(rows, RenderedRow{
			Index:     i,
			Name:      layout.truncate(m, item.ProductName, layout.Columns.NameWidth, RegularFont),
			URL:       item.ProductImageURL,
			Image:     img,
			Quantity:  strconv.FormatInt(item.Quantity, 10),
			UnitPrice: invoicing.FormatMinor(item.UnitPriceMinor, layout.CurrencySymbol),
			Total:     invoicing.FormatMinor(subtotal, layout.CurrencySymbol),
			Subtotal:  subtotal,
		})
	}
	return rows, total
}

// placeRows assigns each row its vertical offset starting at top. It returns
// new rows and the y coordinate just below the last one.
func placeRows(rows []RenderedRow, top, rowHeight float64) ([]RenderedRow, float64) {
	placed := make([]RenderedRow, len(rows))
	y := top
	for i, row := range rows {
		row.Top = y
		placed[i] = row
		y -= rowHeight
	}
	return placed, y
}
