package markup

import (
	"slices"
	"strings"

	"Threadmark/internal/core/richtext"
)

// Rule maps a tag, optionally narrowed by CSS class, to a style effect.
type Rule struct {
	Tag     string         `yaml:"tag" json:"tag"`
	Classes []string       `yaml:"classes,omitempty" json:"classes,omitempty"`
	Style   richtext.Style `yaml:"style,omitempty" json:"style,omitempty"`

	// Block ends the element's content with a line break.
	Block bool `yaml:"block,omitempty" json:"block,omitempty"`

	// Drop discards the element and everything inside it.
	Drop bool `yaml:"drop,omitempty" json:"drop,omitempty"`
}

// appliesTo reports whether the rule's class filter accepts classes.
// A rule without classes accepts any element of its tag.
func (r Rule) appliesTo(classes []string) bool {
	for _, want := range r.Classes {
		if !slices.Contains(classes, want) {
			return false
		}
	}
	return true
}

// RuleTable is the StyleRuleTable: rules keyed by tag name. Rules with a
// class filter are preferred over bare tag rules, and among equally
// specific rules the one added last wins so site rules override defaults.
type RuleTable struct {
	byTag map[string][]Rule
}

// NewRuleTable creates a table holding rules, in order.
func NewRuleTable(rules ...Rule) *RuleTable {
	t := &RuleTable{byTag: make(map[string][]Rule)}
	for _, r := range rules {
		t.Add(r)
	}
	return t
}

// Add registers a rule. Tag names are case-insensitive.
func (t *RuleTable) Add(r Rule) {
	r.Tag = strings.ToLower(r.Tag)
	t.byTag[r.Tag] = append(t.byTag[r.Tag], r)
}

// Match returns the rule for an element with the given tag and classes.
func (t *RuleTable) Match(tag string, classes []string) (Rule, bool) {
	rules := t.byTag[strings.ToLower(tag)]
	var fallback *Rule
	for i := len(rules) - 1; i >= 0; i-- {
		r := rules[i]
		if len(r.Classes) == 0 {
			if fallback == nil {
				fallback = &rules[i]
			}
			continue
		}
		if r.appliesTo(classes) {
			return r, true
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Rule{}, false
}

// Tags returns every tag with at least one rule, sorted.
func (t *RuleTable) Tags() []string {
	tags := make([]string, 0, len(t.byTag))
	for tag := range t.byTag {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// DefaultRules is the rule set shared by every site profile.
func DefaultRules() []Rule {
	return []Rule{
		{Tag: "p", Block: true},
		{Tag: "b", Style: richtext.StyleBold},
		{Tag: "strong", Style: richtext.StyleBold},
		{Tag: "i", Style: richtext.StyleItalic},
		{Tag: "em", Style: richtext.StyleItalic},
		{Tag: "u", Style: richtext.Style{Underline: true}},
		{Tag: "s", Style: richtext.StyleSpoiler},
		{Tag: "strike", Style: richtext.StyleStrike},
		{Tag: "code", Style: richtext.StyleMonospace},
		{Tag: "pre", Style: richtext.StyleMonospace},
		{Tag: "table", Drop: true},
		{Tag: "span", Classes: []string{"quote"}, Style: richtext.StyleInlineQuote},
		{Tag: "span", Classes: []string{"spoiler"}, Style: richtext.StyleSpoiler},
		{Tag: "span", Classes: []string{"deadlink"}, Style: richtext.Style{Color: richtext.ColorQuote, Strike: true}},
		{Tag: "span", Classes: []string{"fortune"}, Style: richtext.Style{Color: richtext.ColorRed, Bold: true}},
		{Tag: "span", Classes: []string{"abbr"}, Drop: true},
		{Tag: "span", Classes: []string{"heading"}, Style: richtext.Style{Bold: true, Scale: 1.25}},
	}
}
