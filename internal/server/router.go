package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the sync service router.
func NewRouter(h *SyncHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	r.Post("/sync/push", h.Push)
	r.Post("/sync/pull", h.Pull)
	r.Get("/health", h.Health)

	return r
}
