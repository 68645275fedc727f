/*
Package api serves a small read-only status API next to the bot.

ROUTES:

	GET  /api/health              liveness
	GET  /api/leaves              every current leave
	GET  /api/leaves/{subjectID}  one leave, 404 when the member is not on leave
	POST /api/sweep               run the expiration sweep now
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the router with all routes configured. Cross-origin
// requests are allowed only from allowedOrigins; with none, no CORS headers
// are sent.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Route("/leaves", func(r chi.Router) {
			r.Get("/", h.ListLeaves)
			r.Get("/{subjectID}", h.GetLeave)
		})
		r.Post("/sweep", h.RunSweep)
	})

	return r
}
