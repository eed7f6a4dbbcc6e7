package richtext

// Color names a semantic colour. The theme resolves it at render time, so
// the buffer never carries concrete RGB values.
type Color string

const (
	ColorNone        Color = ""
	ColorQuote       Color = "quote"
	ColorInlineQuote Color = "inline_quote"
	ColorSpoiler     Color = "spoiler"
	ColorRed         Color = "red"
)

// Style defines visual attributes for a run of text.
type Style struct {
	Color     Color `json:"color,omitempty" yaml:"color,omitempty"`
	Bold      bool  `json:"bold,omitempty" yaml:"bold,omitempty"`
	Italic    bool  `json:"italic,omitempty" yaml:"italic,omitempty"`
	Underline bool  `json:"underline,omitempty" yaml:"underline,omitempty"`
	Strike    bool  `json:"strike,omitempty" yaml:"strike,omitempty"`
	Monospace bool  `json:"monospace,omitempty" yaml:"monospace,omitempty"`
	Spoiler   bool  `json:"spoiler,omitempty" yaml:"spoiler,omitempty"`

	// Scale is a size multiplier; 0 means body size.
	Scale float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// IsZero reports whether s is the default body style.
func (s Style) IsZero() bool {
	return s == Style{}
}

// Merge layers o on top of s. Flags are or-ed, colour and scale are
// replaced only when o sets them.
func (s Style) Merge(o Style) Style {
	out := s
	if o.Color != ColorNone {
		out.Color = o.Color
	}
	out.Bold = s.Bold || o.Bold
	out.Italic = s.Italic || o.Italic
	out.Underline = s.Underline || o.Underline
	out.Strike = s.Strike || o.Strike
	out.Monospace = s.Monospace || o.Monospace
	out.Spoiler = s.Spoiler || o.Spoiler
	if o.Scale != 0 {
		out.Scale = o.Scale
	}
	return out
}

// Common styles
var (
	StyleBold        = Style{Bold: true}
	StyleItalic      = Style{Italic: true}
	StyleMonospace   = Style{Monospace: true}
	StyleStrike      = Style{Strike: true}
	StyleSpoiler     = Style{Spoiler: true, Color: ColorSpoiler}
	StyleInlineQuote = Style{Color: ColorInlineQuote}
)
