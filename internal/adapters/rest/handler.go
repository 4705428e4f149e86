// Package rest exposes the recommender over HTTP.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/core/services"
)

// Recommender is the slice of the core service the HTTP layer drives.
type Recommender interface {
	RecommendFromOne(ctx context.Context, ref domain.PlaylistRef, opts domain.Options) (services.SingleResult, error)
	RecommendFromMany(ctx context.Context, refs []domain.PlaylistRef, opts domain.Options) (services.MultiResult, error)
}

// Config tunes the middleware stack.
type Config struct {
	RateLimitPerMinute int
	CORSOrigins        []string
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc    Recommender
	router chi.Router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc Recommender, cfg Config) *Handler {
	h := &Handler{
		svc:    svc,
		router: chi.NewRouter(),
	}

	h.middleware(cfg)
	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) middleware(cfg Config) {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h.router.Use(middleware.RealIP)
	h.router.Use(requestID)
	h.router.Use(requestLogger)
	h.router.Use(middleware.Recoverer)
	h.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	if cfg.RateLimitPerMinute > 0 {
		h.router.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	}
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.Get("/health", h.HealthCheck)
	h.router.Handle("/metrics", promhttp.Handler())

	h.router.Route("/api", func(r chi.Router) {
		r.Get("/recommendations", h.RecommendFromPlaylist)
		r.Post("/recommendations", h.RecommendFromPlaylists)
	})
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
