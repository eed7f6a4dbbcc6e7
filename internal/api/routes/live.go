package routes

import (
	"github.com/go-chi/chi/v5"

	"Threadmark/internal/api/handlers/live"
)

// RegisterLiveRoutes registers the websocket feed of post updates.
//
// Route: GET /api/v1/live?board={board}&thread={threadNo}
//
// Both parameters are optional filters. Each message is a JSON object
// {"type":"post_changed","post":{...}} carrying the post snapshot.
func RegisterLiveRoutes(r chi.Router, hub *live.Hub) {
	r.Get("/api/v1/live", hub.HandleLive)
}
