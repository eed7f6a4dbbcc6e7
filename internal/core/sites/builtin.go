package sites

import (
	"Threadmark/internal/core/markup"
	"Threadmark/internal/core/richtext"
)

// Builtin returns the profiles compiled into the binary.
func Builtin() []Profile {
	return []Profile{
		{
			Name:       "vichan",
			Embeds:     true,
			ImageLinks: false,
			Patterns: PatternSet{
				Quote:     `.*#(\d+)`,
				FullQuote: `/(\w+)/res/(\d+)\.html#(\d+)`,
			},
		},
		{
			Name:   "taimaba",
			Embeds: true,
			Patterns: PatternSet{
				Quote:     `.*#(\d+)`,
				FullQuote: `/(\w+)/thread/(\d+)#(\d+)`,
			},
			Rules: []markup.Rule{
				{Tag: "strike", Style: richtext.StyleStrike},
				{Tag: "pre", Style: richtext.Style{Monospace: true, Scale: 0.85}},
				{Tag: "blockquote", Classes: []string{"unkfunc"}, Style: richtext.StyleInlineQuote},
			},
		},
		{
			Name:       "bunkerchan",
			Embeds:     true,
			ImageLinks: true,
			Patterns: PatternSet{
				Quote:     `.*#(\d+)`,
				FullQuote: `/(\w+)/res/(\d+)\.html#(\d+)`,
			},
			Rules: []markup.Rule{
				{Tag: "span", Classes: []string{"redText"}, Style: richtext.Style{Bold: true, Scale: 1.3, Color: richtext.ColorInlineQuote}},
				{Tag: "span", Classes: []string{"greenText"}, Style: richtext.StyleInlineQuote},
				{Tag: "span", Classes: []string{"orangeText"}, Style: richtext.Style{Color: richtext.ColorQuote}},
			},
		},
	}
}
