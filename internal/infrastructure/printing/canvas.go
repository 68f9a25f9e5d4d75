package printing

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/unicode/norm"
)

// Surface is the set of drawing primitives the document builder lays an invoice
// out on. Coordinates use a bottom-left origin with y increasing upward; callers
// convert top-down progression into decreasing y themselves.
type Surface interface {
	Measurer
	// Cursor returns the current vertical position
	Cursor() float64
	// SetCursor moves the vertical position to y
	SetCursor(y float64)
	// Advance moves the vertical position down by dy
	Advance(dy float64)
	DrawText(x, y float64, text string, font Font)
	// DrawRect draws a bordered rectangle whose lower-left corner is (x, y)
	DrawRect(x, y, w, h float64)
	DrawLine(x1, y1, x2, y2 float64)
	// DrawImage places a raster with its lower-left corner at (x, y).
	// name identifies the image inside the document and must be unique per placement.
	DrawImage(name string, img *RasterHandle, x, y, w, h float64) error
}

// CanvasConfig configures a new Canvas
type CanvasConfig struct {
	Page    PageGeometry
	Title   string
	Author  string
	Subject string
	Creator string
	// CreatedAt is written as the document creation and modification date.
	// Fixing it makes repeated renders of the same input byte-identical.
	CreatedAt time.Time
	// DisableCompression writes page content streams uncompressed
	DisableCompression bool
}

// Canvas is a single-page PDF drawing surface backed by fpdf. It holds the page
// graph (drawing operations, fonts, images) until Encode serializes it.
type Canvas struct {
	pdf    *fpdf.Fpdf
	page   PageGeometry
	tr     func(string) string
	cursor float64
	sealed bool
}

// NewCanvas creates a canvas with one blank page. Automatic page breaks are
// disabled: content below the bottom edge is clipped.
func NewCanvas(cfg CanvasConfig) *Canvas {
	page := cfg.Page
	if page.Width == 0 || page.Height == 0 {
		page = A4Page
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: page.Width, Ht: page.Height},
	})
	pdf.SetCatalogSort(true)
	pdf.SetCompression(!cfg.DisableCompression)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(page.Margin, page.Margin, page.Margin)
	if !cfg.CreatedAt.IsZero() {
		pdf.SetCreationDate(cfg.CreatedAt)
		pdf.SetModificationDate(cfg.CreatedAt)
	}
	if cfg.Title != "" {
		pdf.SetTitle(cfg.Title, true)
	}
	if cfg.Author != "" {
		pdf.SetAuthor(cfg.Author, true)
	}
	if cfg.Subject != "" {
		pdf.SetSubject(cfg.Subject, true)
	}
	if cfg.Creator != "" {
		pdf.SetCreator(cfg.Creator, true)
	}
	pdf.SetLineWidth(0.75)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetTextColor(0, 0, 0)
	pdf.AddPage()

	return &Canvas{
		pdf:    pdf,
		page:   page,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		cursor: page.Top(),
	}
}

// Page returns the page geometry
func (c *Canvas) Page() PageGeometry {
	return c.page
}

// encodeText normalizes text to NFC and maps it onto the cp1252 code page of the core fonts
func (c *Canvas) encodeText(text string) string {
	return c.tr(norm.NFC.String(text))
}

// Width measures text with the core font's glyph width table
func (c *Canvas) Width(text string, font Font) float64 {
	c.pdf.SetFont(font.Family, font.Style, font.Size)
	return c.pdf.GetStringWidth(c.encodeText(text))
}

func (c *Canvas) Cursor() float64 {
	return c.cursor
}

func (c *Canvas) SetCursor(y float64) {
	c.cursor = y
}

func (c *Canvas) Advance(dy float64) {
	c.cursor -= dy
}

// flip converts a bottom-left y into fpdf's top-left y
func (c *Canvas) flip(y float64) float64 {
	return c.page.Height - y
}

// DrawText writes text with its baseline at y
func (c *Canvas) DrawText(x, y float64, text string, font Font) {
	if c.sealed || text == "" {
		return
	}
	c.pdf.SetFont(font.Family, font.Style, font.Size)
	c.pdf.Text(x, c.flip(y), c.encodeText(text))
}

func (c *Canvas) DrawRect(x, y, w, h float64) {
	if c.sealed {
		return
	}
	c.pdf.Rect(x, c.flip(y+h), w, h, "D")
}

func (c *Canvas) DrawLine(x1, y1, x2, y2 float64) {
	if c.sealed {
		return
	}
	c.pdf.Line(x1, c.flip(y1), x2, c.flip(y2))
}

// DrawImage registers the raster under name and places it. A raster the PDF
// writer rejects leaves the document untouched and returns an error.
func (c *Canvas) DrawImage(name string, img *RasterHandle, x, y, w, h float64) error {
	if c.sealed {
		return errors.New("canvas already encoded")
	}
	if img == nil || len(img.PNG) == 0 {
		return errors.New("empty raster")
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	info := c.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.PNG))
	if c.pdf.Err() {
		err := c.pdf.Error()
		c.pdf.ClearError()
		return fmt.Errorf("register image %s: %w", name, err)
	}
	if info == nil {
		return fmt.Errorf("register image %s: no image info", name)
	}

	c.pdf.ImageOptions(name, x, c.flip(y+h), w, h, false, opts, 0, "")
	return nil
}

// Ensure Canvas implements Surface
var _ Surface = (*Canvas)(nil)
