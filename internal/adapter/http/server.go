package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
)

// DefaultWriteTimeout bounds a /v1/climate response. Long computations
// should be fetched through the CLI instead.
const DefaultWriteTimeout = 10 * time.Minute

// Fetcher processes a batch request, consulting the cache first.
type Fetcher interface {
	Process(ctx context.Context, req domain.BatchRequest) (domain.Result, error)
}

// Server exposes the climate query endpoint plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	fetcher    Fetcher
	places     domain.PlaceResolver
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithWriteTimeout overrides DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { s.httpServer.WriteTimeout = d }
}

// WithPlaces enables the place query parameter.
func WithPlaces(r domain.PlaceResolver) Option {
	return func(s *Server) { s.places = r }
}

// NewServer creates an HTTP server with /v1/climate, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, fetcher Fetcher, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		fetcher: fetcher,
		logger:  logger,
	}
	for _, o := range opts {
		o(s)
	}

	mux.HandleFunc("GET /v1/climate", s.handleClimate)
	mux.HandleFunc("GET /v1/parameters", handleParameters)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
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
