package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Threadmark/internal/core/richtext"
)

func TestRuleTable_Match(t *testing.T) {
	table := NewRuleTable(DefaultRules()...)
	table.Add(Rule{Tag: "span", Classes: []string{"redText"}, Style: richtext.Style{Bold: true, Color: richtext.ColorInlineQuote}})
	table.Add(Rule{Tag: "B", Style: richtext.Style{Bold: true, Scale: 1.5}})

	tests := []struct {
		name    string
		tag     string
		classes []string
		want    richtext.Style
		found   bool
	}{
		{name: "class rule", tag: "span", classes: []string{"quote"}, want: richtext.StyleInlineQuote, found: true},
		{name: "site class rule", tag: "span", classes: []string{"x", "redText"}, want: richtext.Style{Bold: true, Color: richtext.ColorInlineQuote}, found: true},
		{name: "later tag rule wins", tag: "b", want: richtext.Style{Bold: true, Scale: 1.5}, found: true},
		{name: "span without known class", tag: "span", classes: []string{"other"}, found: false},
		{name: "unknown tag", tag: "blink", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := table.Match(tt.tag, tt.classes)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, rule.Style)
		})
	}
}

func TestRuleTable_Tags(t *testing.T) {
	table := NewRuleTable(Rule{Tag: "pre"}, Rule{Tag: "b"}, Rule{Tag: "pre", Classes: []string{"code"}})
	assert.Equal(t, []string{"b", "pre"}, table.Tags())
}
