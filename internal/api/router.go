// Package api exposes the analyzer over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/pipeline"
)

// DeckAnalyzer runs a full analysis request
type DeckAnalyzer interface {
	Analyze(ctx context.Context, req pipeline.Request, eventCh chan<- domain.StreamEvent) (*pipeline.Result, error)
}

// FounderLookup resolves a list of founder names
type FounderLookup interface {
	Lookup(ctx context.Context, names []string) ([]domain.FounderLookupResult, error)
}

// Config holds the HTTP surface settings
type Config struct {
	RequestTimeout        time.Duration
	MaxUploadBytes        int64
	DefaultForceOCR       bool
	DefaultLookupFounders bool
	Version               string
}

// NewRouter creates the API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg Config, analyzer DeckAnalyzer, lookup FounderLookup) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Minute
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	h := NewHandler(logger, cfg, analyzer, lookup)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Pitch Deck Analyzer API",
			"version": cfg.Version,
			"endpoints": map[string]string{
				"/api/v1/analyze":         "POST - Analyze a pitch deck PDF (multipart field \"file\")",
				"/api/v1/founders/lookup": "POST - Look up founder profiles by name",
				"/health":                 "GET - Health check",
			},
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "pitchdeck-analyzer"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)
		r.Post("/founders/lookup", h.LookupFounders)
	})

	return r
}

// requestID tags every request with a uuid that flows into log lines and the
// pipeline result.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := observability.ContextWithTraceID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.WithContext(r.Context()).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
