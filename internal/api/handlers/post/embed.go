package post

import (
	"net/http"

	"Threadmark/internal/core/render"
)

// EmbedHandler restarts link enrichment for stored posts
type EmbedHandler struct {
	service render.Service
}

// NewEmbedHandler creates a new embed handler
func NewEmbedHandler(service render.Service) *EmbedHandler {
	return &EmbedHandler{service: service}
}

// HandleEmbed handles POST /api/v1/posts/{board}/{no}/embed[?wait=true]
// Posts whose last run failed go back to not_started, so this retries them.
func (h *EmbedHandler) HandleEmbed(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromPath(w, r)
	if !ok {
		return
	}
	wait := r.URL.Query().Get("wait") == "true"

	out, err := h.service.Embed(r.Context(), key, wait)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, out)
}
