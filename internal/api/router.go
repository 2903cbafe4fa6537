package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/resnum/internal/spanservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *spanservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/stats", h.Stats)
	r.Get("/proteins/{accession}", h.GetProtein)
	r.Post("/spans", h.Spans)

	// Uploaded tables.
	r.Get("/tables", h.ListTables)
	r.Post("/tables", h.UploadTable)
	r.Get("/tables/{id}", h.GetTable)
	r.Delete("/tables/{id}", h.DeleteTable)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
