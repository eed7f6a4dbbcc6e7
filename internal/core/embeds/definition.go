package embeds

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
)

// Definition is an immutable embedder built from a URL pattern and a set of
// functions. The built-in providers are all Definitions.
type Definition struct {
	// Pattern must match the whole URL for the definition to own it.
	Pattern *regexp.Regexp

	// Request builds the metadata request from the pattern's submatches.
	// Nil means no request is made.
	Request func(ctx context.Context, m []string) (*http.Request, error)

	// Decode parses the metadata response. resp is nil without a Request.
	Decode func(m []string, resp *Response) (*Result, error)

	// Duration is set for embedders that look up durations in a second
	// round trip.
	Duration *DurationLookup

	ID       string
	IconName string
}

// DurationLookup is the optional second round trip of a Definition.
type DurationLookup struct {
	Request func(ctx context.Context, m []string, first *Result) (*http.Request, error)
	Decode  func(resp *Response) (string, error)
}

func (d *Definition) Name() string { return d.ID }

func (d *Definition) Icon() string { return d.IconName }

func (d *Definition) Matches(rawURL string) bool {
	return d.match(rawURL) != nil
}

func (d *Definition) BuildRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	m := d.match(rawURL)
	if m == nil {
		return nil, fmt.Errorf("%w: %s does not own %s", ErrNoEmbedder, d.ID, rawURL)
	}
	if d.Request == nil {
		return nil, nil
	}
	return d.Request(ctx, m)
}

func (d *Definition) Parse(rawURL string, resp *Response) (*Result, error) {
	m := d.match(rawURL)
	if m == nil {
		return nil, fmt.Errorf("%w: %s does not own %s", ErrNoEmbedder, d.ID, rawURL)
	}
	res, err := d.Decode(m, resp)
	if err != nil {
		return nil, err
	}
	res.Provider = d.ID
	return res, nil
}

func (d *Definition) DurationRequest(ctx context.Context, rawURL string, first *Result) (*http.Request, error) {
	if d.Duration == nil {
		return nil, nil
	}
	m := d.match(rawURL)
	if m == nil {
		return nil, nil
	}
	return d.Duration.Request(ctx, m, first)
}

func (d *Definition) ParseDuration(resp *Response) (string, error) {
	if d.Duration == nil {
		return "", nil
	}
	return d.Duration.Decode(resp)
}

func (d *Definition) match(rawURL string) []string {
	loc := d.Pattern.FindStringSubmatchIndex(rawURL)
	if loc == nil || loc[0] != 0 || loc[1] != len(rawURL) {
		return nil
	}
	m := make([]string, len(loc)/2)
	for i := range m {
		if loc[2*i] >= 0 {
			m[i] = rawURL[loc[2*i]:loc[2*i+1]]
		}
	}
	return m
}
