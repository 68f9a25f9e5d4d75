package printing

// PageGeometry describes the single invoice page in points (1" = 72pt).
// Coordinates on the page use a bottom-left origin with y increasing upward.
type PageGeometry struct {
	Name   string
	Width  float64
	Height float64
	Margin float64
}

var (
	A4Page     = PageGeometry{Name: "A4", Width: 595.28, Height: 841.89, Margin: 40}
	LetterPage = PageGeometry{Name: "Letter", Width: 612, Height: 792, Margin: 40}
)

// Top returns the y coordinate of the top margin
func (g PageGeometry) Top() float64 {
	return g.Height - g.Margin
}

// Right returns the x coordinate of the right margin
func (g PageGeometry) Right() float64 {
	return g.Width - g.Margin
}

// ContentWidth is the horizontal space between the left and right margins
func (g PageGeometry) ContentWidth() float64 {
	return g.Width - 2*g.Margin
}

// PageGeometryByName looks up a supported page size, defaulting to A4
func PageGeometryByName(name string) PageGeometry {
	switch name {
	case "Letter", "LETTER", "letter":
		return LetterPage
	default:
		return A4Page
	}
}
