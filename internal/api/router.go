package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tutorview/internal/chapterservice"
	"github.com/starford/tutorview/internal/viewer"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(reg *viewer.Registry, svc *chapterservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(reg, svc)

	r := chi.NewRouter()

	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Use(h.SessionMiddleware)
		r.Get("/", h.GetSession)
		r.Post("/navigate", h.Navigate)
		r.Post("/groups/{group}/toggle", h.ToggleGroup)
		r.Get("/search", h.Search)
	})

	r.Get("/catalog", h.Catalog)
	r.Get("/chapters/*", h.GetChapter)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
