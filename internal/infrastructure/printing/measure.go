package printing

// Ellipsis is appended to text shortened by Truncate
const Ellipsis = "..."

// Font identifies a core font face at a size in points
type Font struct {
	Family string
	Style  string // "" regular, "B" bold
	Size   float64
}

var (
	RegularFont = Font{Family: "Helvetica", Style: "", Size: 10}
	BoldFont    = Font{Family: "Helvetica", Style: "B", Size: 10}
)

// WithSize returns a copy of the font at another size
func (f Font) WithSize(size float64) Font {
	f.Size = size
	return f
}

// Measurer returns the advance width of text, in points, using the per-glyph
// width table of the font. Implementations must be deterministic and free of I/O.
type Measurer interface {
	Width(text string, font Font) float64
}

// Truncate shortens text so that it fits maxWidth. While the text is too wide
// the last character is dropped; once it fits the ellipsis is appended. Only
// the remaining core text is checked against maxWidth, so the result can be
// wider than maxWidth by the width of the ellipsis. Text that already fits is
// returned unchanged.
func Truncate(m Measurer, text string, maxWidth float64, font Font) string {
	return truncate(m, text, maxWidth, font, false)
}

// TruncateStrict is like Truncate but keeps core text plus ellipsis within maxWidth
func TruncateStrict(m Measurer, text string, maxWidth float64, font Font) string {
	return truncate(m, text, maxWidth, font, true)
}

func truncate(m Measurer, text string, maxWidth float64, font Font, strict bool) string {
	if m.Width(text, font) <= maxWidth {
		return text
	}

	budget := maxWidth
	if strict {
		budget -= m.Width(Ellipsis, font)
	}

	runes := []rune(text)
	for len(runes) > 0 && m.Width(string(runes), font) > budget {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + Ellipsis
}
