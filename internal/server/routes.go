package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/session", func(r chi.Router) {
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.deleteSession)
			r.Post("/message", s.sendMessage)
			r.Get("/servers", s.listSessionServers)
		})
	})

	r.Get("/catalog", s.listCatalog)

	// Event streaming (SSE)
	r.Get("/event", s.streamEvents)

	r.Get("/health", s.health)
}
