package render

import "Threadmark/internal/core/posts"

// maxMarkupBytes bounds the markup accepted for one post.
const maxMarkupBytes = 64 * 1024

// Request asks for one post to be rendered and stored.
type Request struct {
	Board    string `json:"board"`
	Markup   string `json:"markup"`
	ThreadNo int64  `json:"threadNo"`
	No       int64  `json:"no"`

	// Embed starts link enrichment after rendering.
	Embed bool `json:"embed"`

	// Wait blocks until enrichment finishes.
	Wait bool `json:"wait"`
}

// Key returns the store key of the requested post.
func (r Request) Key() posts.Key {
	return posts.Key{Board: r.Board, No: r.No}
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if r.Board == "" {
		return &ValidationError{Field: "board", Message: "is required"}
	}
	if r.No <= 0 {
		return &ValidationError{Field: "no", Message: "must be positive"}
	}
	if r.ThreadNo < 0 {
		return &ValidationError{Field: "threadNo", Message: "cannot be negative"}
	}
	if len(r.Markup) > maxMarkupBytes {
		return &ValidationError{Field: "markup", Message: "is too large"}
	}
	return nil
}

// EmbedOutcome reports what a re-embed request did.
type EmbedOutcome struct {
	Post    posts.Snapshot `json:"post"`
	Started bool           `json:"started"`
	Tasks   int            `json:"tasks"`
	OK      *bool          `json:"ok,omitempty"`
}
