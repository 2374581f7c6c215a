// Package httpadapter exposes the read API, the scrape trigger, and the
// operational endpoints over HTTP.
package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

// LatestQuerier returns the most recent records.
type LatestQuerier interface {
	Latest(ctx context.Context, limit int) ([]domain.EarthquakeRecord, error)
}

// ScrapeRunner performs one scrape.
type ScrapeRunner interface {
	Run(ctx context.Context) (pipeline.Result, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Query   LatestQuerier
	Scraper ScrapeRunner
	Ready   sharedobs.ReadinessChecker
	// RateLimit is the minimum spacing between POST /scrape calls. Zero
	// disables the limit.
	RateLimit time.Duration
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// Server wraps the HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server serving NewRouter(deps).
func NewServer(addr string, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     NewRouter(deps),
			ReadTimeout: 10 * time.Second,
			// POST /scrape waits for the upstream fetch.
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: deps.Logger,
	}
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// NewRouter builds the route table.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	var limiter *rate.Limiter
	if deps.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Every(deps.RateLimit), 1)
	}
	h := &handlers{
		query:   deps.Query,
		scraper: deps.Scraper,
		limiter: limiter,
		clock:   deps.Clock,
		logger:  deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverJSON(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/sismos", h.listEarthquakes)
	r.Post("/scrape", h.triggerScrape)

	return r
}
