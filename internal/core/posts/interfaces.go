package posts

import "context"

// Store holds rendered posts so embedding results and live updates can be
// served after the render request that produced them.
type Store interface {
	// Put stores a post, replacing any post with the same key
	Put(ctx context.Context, post *Post) error

	// Get retrieves a post by key
	// Returns ErrPostNotFound if absent
	Get(ctx context.Context, key Key) (*Post, error)

	// ListByThread returns the posts of one thread ordered by number
	ListByThread(ctx context.Context, board string, threadNo int64) ([]*Post, error)
}
