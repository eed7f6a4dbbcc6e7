package markup

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"Threadmark/internal/core/richtext"
)

func TestResolver_OwnHost(t *testing.T) {
	r := NewResolver(Patterns{
		Quote:     regexp.MustCompile(`.*#(\d+)`),
		FullQuote: regexp.MustCompile(`/(\w+)/res/(\d+)\.html#(\d+)`),
		Board:     regexp.MustCompile(`^/(\w+)/$`),
	})
	ctx := Context{Host: "boards.test", Board: "b", ThreadNo: 10}

	tests := []struct {
		name    string
		href    string
		text    string
		ref     *richtext.Reference
		display string
	}{
		{name: "own host quote", href: "https://boards.test/b/res/10.html#12", text: ">>12", ref: richtext.Quote(12), display: ">>12"},
		{name: "own host board", href: "https://BOARDS.test/tech/", text: ">>>/tech/", ref: richtext.BoardLink("tech"), display: ">>>/tech/"},
		{name: "own host page stays a link", href: "https://boards.test/about/rules.html", text: "rules", ref: richtext.Link("https://boards.test/about/rules.html", richtext.OriginMarkup), display: "https://boards.test/about/rules.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, display, outcome := r.Resolve(tt.href, tt.text, ctx)
			assert.Equal(t, Resolved, outcome)
			assert.Equal(t, tt.display, display)
			assert.Equal(t, tt.ref, ref)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	patterns := Patterns{
		Quote:     regexp.MustCompile(`.*#(\d+)`),
		FullQuote: regexp.MustCompile(`/(\w+)/res/(\d+)\.html#(\d+)`),
		Board:     regexp.MustCompile(`^/(\w+)/$`),
		Archive:   regexp.MustCompile(`^https?://archive\.example/(\w+)/thread/(\d+)/?(?:#(\d+))?$`),
		TextQuote: regexp.MustCompile(`^>>(\d+)$`),
	}
	r := NewResolver(patterns)
	ctx := Context{Board: "leftypol", ThreadNo: 100}

	tests := []struct {
		name    string
		href    string
		text    string
		ref     *richtext.Reference
		display string
		outcome Outcome
	}{
		{name: "quote", href: "#123", text: ">>123", ref: richtext.Quote(123), display: ">>123", outcome: Resolved},
		{name: "full quote same thread", href: "/leftypol/res/100.html#5", text: ">>5", ref: richtext.Quote(5), display: ">>5", outcome: Resolved},
		{name: "full quote other board", href: "/tech/res/8.html#9", text: ">>>/tech/9", ref: richtext.CrossThreadQuote("tech", 8, 9), display: ">>>/tech/9", outcome: Resolved},
		{name: "board", href: "/tech/", text: ">>>/tech/", ref: richtext.BoardLink("tech"), display: ">>>/tech/", outcome: Resolved},
		{name: "archive with post", href: "https://archive.example/g/thread/4#6", text: ">>6", ref: richtext.Archive("g", 4, 6), display: ">>6", outcome: Resolved},
		{name: "archive thread only", href: "https://archive.example/g/thread/4", text: "thread", ref: richtext.Archive("g", 4, 0), display: "thread", outcome: Resolved},
		{name: "external link", href: "https://example.com/a", text: "a", ref: richtext.Link("https://example.com/a", richtext.OriginMarkup), display: "https://example.com/a", outcome: Resolved},
		{name: "protocol relative link", href: "//example.com/b", text: "b", ref: richtext.Link("//example.com/b", richtext.OriginMarkup), display: "//example.com/b", outcome: Resolved},
		{name: "fragment falls back to text", href: "#p77", text: ">>77", ref: richtext.Quote(77), display: ">>77", outcome: Resolved},
		{name: "overflowing number", href: "#123456789012345678901234", text: ">>big", display: ">>big", outcome: Malformed},
		{name: "relative unmatched", href: "/static/rules.html", text: "rules", display: "rules", outcome: Unmatched},
		{name: "empty href", href: "  ", text: "x", display: "x", outcome: Unmatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, display, outcome := r.Resolve(tt.href, tt.text, ctx)
			assert.Equal(t, tt.outcome, outcome)
			assert.Equal(t, tt.display, display)
			assert.Equal(t, tt.ref, ref)
		})
	}
}
