package embeds

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned when an embedder has failed repeatedly and is paused
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrUnexpectedStatus is returned when an embed endpoint answers with a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrEmptyTitle is returned when a response parses but carries no usable title
	ErrEmptyTitle = errors.New("embed result has no title")

	// ErrResponseTooLarge is returned when a response body exceeds the read limit
	ErrResponseTooLarge = errors.New("response body too large")

	// ErrNoEmbedder is returned when no registered embedder owns a URL
	ErrNoEmbedder = errors.New("no embedder for URL")

	// ErrInvalidCacheSize is returned when the result cache capacity is not positive
	ErrInvalidCacheSize = errors.New("invalid cache size: must be positive")
)

// StatusError records the status code of a failed embed request.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
