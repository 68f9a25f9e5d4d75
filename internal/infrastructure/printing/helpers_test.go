package printing

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/erp/invoicer/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fixedMeasurer gives every rune a width of half the font size
type fixedMeasurer struct{}

func (fixedMeasurer) Width(text string, font Font) float64 {
	return float64(utf8.RuneCountInString(text)) * font.Size / 2
}

type drawOp struct {
	kind string
	x, y float64
	w, h float64
	text string
	font Font
	name string
}

// recordingSurface records drawing calls instead of producing a PDF
type recordingSurface struct {
	fixedMeasurer
	cursor       float64
	ops          []drawOp
	rejectImages bool
}

func (s *recordingSurface) Cursor() float64     { return s.cursor }
func (s *recordingSurface) SetCursor(y float64) { s.cursor = y }
func (s *recordingSurface) Advance(dy float64)  { s.cursor -= dy }

func (s *recordingSurface) DrawText(x, y float64, text string, font Font) {
	s.ops = append(s.ops, drawOp{kind: "text", x: x, y: y, text: text, font: font})
}

func (s *recordingSurface) DrawRect(x, y, w, h float64) {
	s.ops = append(s.ops, drawOp{kind: "rect", x: x, y: y, w: w, h: h})
}

func (s *recordingSurface) DrawLine(x1, y1, x2, y2 float64) {
	s.ops = append(s.ops, drawOp{kind: "line", x: x1, y: y1, w: x2 - x1, h: y2 - y1})
}

func (s *recordingSurface) DrawImage(name string, img *RasterHandle, x, y, w, h float64) error {
	if s.rejectImages {
		return assertErr("rejected")
	}
	s.ops = append(s.ops, drawOp{kind: "image", x: x, y: y, w: w, h: h, name: name})
	return nil
}

func (s *recordingSurface) texts() []string {
	var out []string
	for _, op := range s.ops {
		if op.kind == "text" {
			out = append(out, op.text)
		}
	}
	return out
}

func (s *recordingSurface) find(kind string, match func(drawOp) bool) []drawOp {
	var out []drawOp
	for _, op := range s.ops {
		if op.kind == kind && (match == nil || match(op)) {
			out = append(out, op)
		}
	}
	return out
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

// stubSource serves canned outcomes by URL and counts calls
type stubSource struct {
	mu      sync.Mutex
	results map[string]EmbeddedImage
	calls   []string
}

func (s *stubSource) Embed(ctx context.Context, rawURL string) EmbeddedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rawURL)
	if r, ok := s.results[rawURL]; ok {
		return r
	}
	return Fallback(assertErr("unknown url"))
}

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testRaster(t *testing.T, w, h int) *RasterHandle {
	t.Helper()
	raster, err := NewImageEmbedder(nil).decode(encodePNG(t, w, h, color.NRGBA{R: 200, G: 30, B: 30, A: 255}))
	require.NoError(t, err)
	return raster
}

func testOrder() *invoicing.Order {
	return &invoicing.Order{
		ID:        uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301"),
		CreatedAt: time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC),
		Validated: true,
		Customer: invoicing.Customer{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
		BillingAddress: &invoicing.BillingAddress{
			Street:  "12 Rue de Rivoli",
			ZipCode: "75001",
			City:    "Paris",
			Country: "France",
		},
		LineItems: []invoicing.LineItem{
			{ProductName: "Notebook", ProductImageURL: "https://img.test/a.png", UnitPriceMinor: 2500, Quantity: 2},
			{ProductName: "Pencil", ProductImageURL: "https://img.test/b.png", UnitPriceMinor: 1000, Quantity: 1},
		},
	}
}
