package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/framefoundry/thumbgen-api/internal/api"
	apiMiddleware "github.com/framefoundry/thumbgen-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	thumbnailHandler := api.NewThumbnailHandler(app.thumbnailService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Thumbnail generation endpoints
			r.Post("/thumbnails/generate", thumbnailHandler.GenerateThumbnails)
			r.Post("/thumbnails/regenerate", thumbnailHandler.RegenerateThumbnail)

			// Status polling endpoints
			r.Get("/thumbnails/batch/{ids}", thumbnailHandler.GetThumbnailsBatch)
			r.Get("/thumbnails/{titleID}", thumbnailHandler.GetThumbnails)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
