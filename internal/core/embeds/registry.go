package embeds

import (
	"slices"

	"Threadmark/internal/core/posts"
)

// Registry is the ordered list of embedders. The first embedder whose
// pattern accepts a URL owns it; there is no fallback to later ones.
// Membership is fixed at construction.
type Registry struct {
	embedders []Embedder
}

// NewRegistry creates a registry consulting embedders in order.
func NewRegistry(embedders ...Embedder) *Registry {
	return &Registry{embedders: slices.Clone(embedders)}
}

// Owner returns the embedder owning rawURL, or nil.
func (r *Registry) Owner(rawURL string) Embedder {
	for _, e := range r.embedders {
		if e.Matches(rawURL) {
			return e
		}
	}
	return nil
}

// ShouldEmbed reports whether links on board may be enriched.
func (r *Registry) ShouldEmbed(board posts.Board) bool {
	return board.EmbedsEnabled && len(r.embedders) > 0
}

// Embedders returns the registered embedders in order.
func (r *Registry) Embedders() []Embedder {
	return slices.Clone(r.embedders)
}
