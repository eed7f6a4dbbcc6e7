package embeds

import (
	"context"
	"net/http"

	"Threadmark/internal/core/posts"
)

// Embedder recognises a class of external URLs and knows how to fetch and
// parse metadata for them.
type Embedder interface {
	// Name identifies the embedder in logs, circuit breaker state and results
	Name() string

	// Icon is the asset name drawn over the icon glyph of an embedded link
	Icon() string

	// Matches reports whether the embedder owns rawURL
	Matches(rawURL string) bool

	// BuildRequest creates the metadata request for rawURL
	// A nil request means the result is derived from the URL alone
	BuildRequest(ctx context.Context, rawURL string) (*http.Request, error)

	// Parse turns the response into a result
	// resp is nil when BuildRequest returned no request
	Parse(rawURL string, resp *Response) (*Result, error)

	// DurationRequest builds a second round trip for a result parsed without a duration
	// Returns nil when the embedder has no duration lookup
	DurationRequest(ctx context.Context, rawURL string, first *Result) (*http.Request, error)

	// ParseDuration extracts a formatted duration from the second response
	ParseDuration(resp *Response) (string, error)
}

// Transport performs embed HTTP requests. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Repository persists embed results across restarts.
type Repository interface {
	// Get retrieves a stored result for a normalized URL
	// Returns nil, nil if not found (not an error condition)
	// Returns error only on database failures
	Get(ctx context.Context, key string) (*Result, error)

	// Set stores a result, replacing any existing entry for the key
	Set(ctx context.Context, key string, result *Result) error
}

// Notifier is told when a post's rendered content changed.
type Notifier interface {
	PostChanged(post *posts.Post)
}
