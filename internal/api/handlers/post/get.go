package post

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Threadmark/internal/core/posts"
	"Threadmark/internal/core/render"
)

// GetHandler serves stored posts
type GetHandler struct {
	service render.Service
}

// NewGetHandler creates a new get handler
func NewGetHandler(service render.Service) *GetHandler {
	return &GetHandler{service: service}
}

// HandleGet handles GET /api/v1/posts/{board}/{no}
func (h *GetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromPath(w, r)
	if !ok {
		return
	}

	post, err := h.service.Get(r.Context(), key)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, post.Snapshot())
}

// keyFromPath reads the post key from the route, writing a 400 when the
// number is not an integer.
func keyFromPath(w http.ResponseWriter, r *http.Request) (posts.Key, bool) {
	no, err := strconv.ParseInt(chi.URLParam(r, "no"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "post number must be an integer")
		return posts.Key{}, false
	}
	return posts.Key{Board: chi.URLParam(r, "board"), No: no}, true
}
