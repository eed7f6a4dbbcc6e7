package posts

import (
	"fmt"
	"strconv"
)

// EmbedStatus is the tri-state progress of link enrichment for a post.
type EmbedStatus int32

const (
	EmbedNotStarted EmbedStatus = iota
	EmbedInProgress
	EmbedComplete
)

func (s EmbedStatus) String() string {
	switch s {
	case EmbedNotStarted:
		return "not_started"
	case EmbedInProgress:
		return "in_progress"
	case EmbedComplete:
		return "complete"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// MarshalText encodes the status by name.
func (s EmbedStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name written by MarshalText.
func (s *EmbedStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "not_started":
		*s = EmbedNotStarted
	case "in_progress":
		*s = EmbedInProgress
	case "complete":
		*s = EmbedComplete
	default:
		return fmt.Errorf("unknown embed status %q", text)
	}
	return nil
}

// Key identifies a post: board code plus sequential number.
type Key struct {
	Board string `json:"board"`
	No    int64  `json:"no"`
}

func (k Key) String() string {
	return fmt.Sprintf("/%s/%d", k.Board, k.No)
}

// Validate checks that both parts of the key are set
func (k Key) Validate() error {
	if k.Board == "" || k.No <= 0 {
		return ErrInvalidKey
	}
	return nil
}

// Board carries the per-board feature flags consulted during embedding.
type Board struct {
	Code string `yaml:"code" json:"code"`

	// EmbedsEnabled turns link enrichment on for the board.
	EmbedsEnabled bool `yaml:"embeds" json:"embeds"`

	// ImageLinks turns direct media links into inline images.
	ImageLinks bool `yaml:"imageLinks" json:"imageLinks"`
}

// InlineImage is an image attached to a post by embedding rather than by
// upload: a direct media link or an embedder's preview image.
type InlineImage struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Filename     string `json:"filename,omitempty"`
	Extension    string `json:"extension,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Spoiler      bool   `json:"spoiler,omitempty"`
}
