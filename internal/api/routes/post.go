package routes

import (
	"github.com/go-chi/chi/v5"

	"Threadmark/internal/api/handlers/post"
	"Threadmark/internal/core/render"
)

// RegisterPostRoutes registers the post rendering endpoints on the router
func RegisterPostRoutes(r chi.Router, service render.Service) {
	renderHandler := post.NewRenderHandler(service)
	getHandler := post.NewGetHandler(service)
	embedHandler := post.NewEmbedHandler(service)
	threadHandler := post.NewThreadHandler(service)

	r.Route("/api/v1/posts", func(r chi.Router) {
		// Render markup into a stored post, optionally embedding its links
		r.Post("/render", renderHandler.HandleRender)

		r.Get("/{board}/{no}", getHandler.HandleGet)

		// Retry enrichment of a post whose last run failed
		r.Post("/{board}/{no}/embed", embedHandler.HandleEmbed)
	})

	r.Get("/api/v1/threads/{board}/{threadNo}", threadHandler.HandleThread)
}
