package post

import (
	"encoding/json"
	"errors"
	"net/http"

	"Threadmark/internal/core/render"
)

// maxRequestBytes caps the request body; markup itself is limited further
// by the service.
const maxRequestBytes = 256 * 1024

// RenderHandler handles post rendering requests
type RenderHandler struct {
	service render.Service
}

// NewRenderHandler creates a new render handler
func NewRenderHandler(service render.Service) *RenderHandler {
	return &RenderHandler{service: service}
}

// HandleRender handles POST /api/v1/posts/render
// Parses the markup, stores the post and returns its snapshot. With
// "embed" set, enrichment starts in the background; "wait" holds the
// response until it finishes.
func (h *RenderHandler) HandleRender(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req render.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge", "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	post, err := h.service.Render(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, post.Snapshot())
}
