package routes

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Threadmark/internal/core/embeds"
)

// HealthSources supplies the figures reported by /health. Nil fields are
// left out.
type HealthSources struct {
	Cache     *embeds.Cache
	Breakers  func() map[string]embeds.BreakerStats
	Clients   func() int
	Embedders *embeds.Registry
	Site      string
}

type healthResponse struct {
	Status      string                         `json:"status"`
	Site        string                         `json:"site,omitempty"`
	Embedders   []string                       `json:"embedders,omitempty"`
	Cache       *embeds.CacheStats             `json:"cache,omitempty"`
	Breakers    map[string]embeds.BreakerStats `json:"breakers,omitempty"`
	LiveClients *int                           `json:"liveClients,omitempty"`
}

// RegisterHealthRoutes registers GET /health
func RegisterHealthRoutes(r chi.Router, src HealthSources) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "ok", Site: src.Site}
		if src.Embedders != nil {
			for _, e := range src.Embedders.Embedders() {
				resp.Embedders = append(resp.Embedders, e.Name())
			}
		}
		if src.Cache != nil {
			stats := src.Cache.Stats()
			resp.Cache = &stats
		}
		if src.Breakers != nil {
			resp.Breakers = src.Breakers()
		}
		if src.Clients != nil {
			n := src.Clients()
			resp.LiveClients = &n
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	})
}
