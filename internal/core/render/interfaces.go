package render

import (
	"context"

	"Threadmark/internal/core/posts"
)

// Service renders posts for one site and drives their enrichment.
type Service interface {
	// Render parses markup into a post, stores it and optionally starts
	// embedding. A post rendered again under the same key is replaced.
	Render(ctx context.Context, req Request) (*posts.Post, error)

	// Get returns a stored post.
	Get(ctx context.Context, key posts.Key) (*posts.Post, error)

	// Thread returns the stored posts of a thread ordered by number.
	Thread(ctx context.Context, board string, threadNo int64) ([]*posts.Post, error)

	// Embed starts embedding for a stored post. Posts already embedding or
	// complete are left alone and reported as not started.
	Embed(ctx context.Context, key posts.Key, wait bool) (*EmbedOutcome, error)
}
