package embeds

import (
	"net/http"
	"net/url"

	"Threadmark/internal/core/posts"
)

// Result is the metadata fetched for one URL. Results are shared through
// the cache and must not be modified once returned.
type Result struct {
	// Title is never empty.
	Title string `json:"title"`

	// Duration is nil when not applicable and points at "" when a lookup
	// was made but the media has no duration.
	Duration *string `json:"duration,omitempty"`

	// ExtraImage is an optional preview or media file.
	ExtraImage *posts.InlineImage `json:"extraImage,omitempty"`

	// Provider names the embedder that produced the result.
	Provider string `json:"provider"`
}

// DisplayText is the text that replaces the URL: the title followed by the
// duration when one is known.
func (r Result) DisplayText() string {
	if r.Duration != nil && *r.Duration != "" {
		return r.Title + " " + *r.Duration
	}
	return r.Title
}

// Response is a fully read embed response.
type Response struct {
	URL        *url.URL
	Header     http.Header
	Body       []byte
	StatusCode int
}

// NoDuration marks a result whose duration was requested but is absent.
func NoDuration() *string {
	s := ""
	return &s
}

// Duration wraps a formatted duration.
func Duration(s string) *string {
	return &s
}
