package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/orrery/internal/service"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events/stream inside the auth group.
func NewRouter(svc *service.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	uh := NewUploadHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Systems and their trees.
	r.Get("/systems", h.ListSystems)
	r.Get("/systems/{key}", h.GetSystem)
	r.Get("/systems/{key}/stats", h.GetStats)
	r.Get("/systems/{key}/barycentres", h.GetBarycentres)
	r.Get("/systems/{key}/bodies", h.FindBody)
	r.Post("/systems/{key}/bodies", h.ImportBodies)

	// Ingestion.
	r.Post("/events", h.IngestEvent)
	r.Post("/journal", uh.Upload)
	r.Get("/pending", h.Pending)

	if sseHandler != nil {
		r.Get("/events/stream", sseHandler.ServeHTTP)
	}

	return r
}
