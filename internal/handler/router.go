// Package handler provides the HTTP API of the media store.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterConfig contains the handlers and options for the router.
type RouterConfig struct {
	MediaHandler      *MediaHandler
	CollectionHandler *CollectionHandler
	GCHandler         *GCHandler
	MetricsEnabled    bool
	MetricsPath       string
	Logger            zerolog.Logger
}

// NewRouter assembles the chi router with the full API surface.
func NewRouter(config RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(config.Logger))
	r.Use(middleware.Recoverer)

	// Health check (no auth, no logging noise worth worrying about)
	r.Get("/health", handleHealth)

	if config.MetricsEnabled {
		path := config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/media", func(r chi.Router) {
			r.Post("/", config.MediaHandler.Ingest)
			r.Get("/", config.MediaHandler.Search)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", config.MediaHandler.Get)
				r.Get("/content", config.MediaHandler.Content)
				r.Delete("/", config.MediaHandler.Delete)
				r.Post("/metadata", config.MediaHandler.AddMetadata)
			})
		})

		r.Route("/collections", func(r chi.Router) {
			r.Post("/", config.CollectionHandler.Create)
			r.Get("/", config.CollectionHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", config.CollectionHandler.Get)
				r.Put("/", config.CollectionHandler.Update)
				r.Delete("/", config.CollectionHandler.Delete)
				r.Post("/media", config.CollectionHandler.AddMedia)
				r.Get("/media", config.CollectionHandler.ListMedia)
			})
		})

		if config.GCHandler != nil {
			r.Route("/gc", func(r chi.Router) {
				r.Get("/stats", config.GCHandler.Stats)
				r.Post("/run", config.GCHandler.Run)
			})
		}
	})

	return r
}

// handleHealth handles health check requests.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// requestLogger logs one line per request through the shared logger.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
