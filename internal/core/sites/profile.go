package sites

import (
	"fmt"
	"regexp"

	"Threadmark/internal/core/markup"
	"Threadmark/internal/core/posts"
)

// PatternSet holds a site's reference patterns as source text. Empty
// fields fall back to markup.DefaultPatterns.
type PatternSet struct {
	Quote     string `yaml:"quote,omitempty"`
	FullQuote string `yaml:"fullQuote,omitempty"`
	Board     string `yaml:"board,omitempty"`
	Search    string `yaml:"search,omitempty"`
	Archive   string `yaml:"archive,omitempty"`
	TextQuote string `yaml:"textQuote,omitempty"`
}

// Profile describes how one imageboard engine marks up posts.
type Profile struct {
	Name     string        `yaml:"name"`
	Host     string        `yaml:"host,omitempty"`
	Patterns PatternSet    `yaml:"patterns,omitempty"`
	Rules    []markup.Rule `yaml:"rules,omitempty"`
	Boards   []posts.Board `yaml:"boards,omitempty"`

	// Embeds is the EmbedsEnabled flag for boards not listed in Boards.
	Embeds bool `yaml:"embeds"`

	// ImageLinks is the ImageLinks flag for boards not listed in Boards.
	ImageLinks bool `yaml:"imageLinks"`
}

// compilePatterns builds the resolver patterns, keeping defaults for
// anything the profile leaves empty.
func (p Profile) compilePatterns() (markup.Patterns, error) {
	out := markup.DefaultPatterns()
	fields := []struct {
		name   string
		source string
		dst    **regexp.Regexp
	}{
		{"quote", p.Patterns.Quote, &out.Quote},
		{"fullQuote", p.Patterns.FullQuote, &out.FullQuote},
		{"board", p.Patterns.Board, &out.Board},
		{"search", p.Patterns.Search, &out.Search},
		{"archive", p.Patterns.Archive, &out.Archive},
		{"textQuote", p.Patterns.TextQuote, &out.TextQuote},
	}
	for _, f := range fields {
		if f.source == "" {
			continue
		}
		re, err := regexp.Compile(f.source)
		if err != nil {
			return markup.Patterns{}, fmt.Errorf("%w: %s pattern of %q: %v", ErrInvalidProfile, f.name, p.Name, err)
		}
		*f.dst = re
	}
	return out, nil
}

func (p Profile) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	for _, r := range p.Rules {
		if r.Tag == "" {
			return fmt.Errorf("%w: rule without tag in %q", ErrInvalidProfile, p.Name)
		}
	}
	for _, b := range p.Boards {
		if b.Code == "" {
			return fmt.Errorf("%w: board without code in %q", ErrInvalidProfile, p.Name)
		}
	}
	return nil
}
