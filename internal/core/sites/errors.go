package sites

import "errors"

var (
	// ErrUnknownSite is returned when no profile is registered under a name
	ErrUnknownSite = errors.New("unknown site")

	// ErrInvalidProfile indicates a profile is missing required fields or has a bad pattern
	ErrInvalidProfile = errors.New("invalid site profile")
)
