package post

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"Threadmark/internal/core/posts"
	"Threadmark/internal/core/render"
)

// ThreadHandler serves every stored post of a thread
type ThreadHandler struct {
	service render.Service
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(service render.Service) *ThreadHandler {
	return &ThreadHandler{service: service}
}

type threadResponse struct {
	Board    string           `json:"board"`
	Posts    []posts.Snapshot `json:"posts"`
	ThreadNo int64            `json:"threadNo"`
}

// HandleThread handles GET /api/v1/threads/{board}/{threadNo}
func (h *ThreadHandler) HandleThread(w http.ResponseWriter, r *http.Request) {
	board := chi.URLParam(r, "board")
	threadNo, err := strconv.ParseInt(chi.URLParam(r, "threadNo"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "thread number must be an integer")
		return
	}

	thread, err := h.service.Thread(r.Context(), board, threadNo)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := threadResponse{Board: board, ThreadNo: threadNo, Posts: make([]posts.Snapshot, 0, len(thread))}
	for _, p := range thread {
		resp.Posts = append(resp.Posts, p.Snapshot())
	}
	writeJSON(w, resp)
}
