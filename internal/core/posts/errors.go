package posts

import "errors"

var (
	// ErrPostNotFound indicates the requested post isn't in the store
	ErrPostNotFound = errors.New("post not found")

	// ErrNotEmbedding indicates a commit was attempted without holding the InProgress status
	ErrNotEmbedding = errors.New("post is not being embedded")

	// ErrInvalidKey indicates a board code or post number is missing
	ErrInvalidKey = errors.New("invalid post key: board and number are required")
)
