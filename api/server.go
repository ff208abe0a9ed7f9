package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/suggestit/analytics"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/ingest"
	"github.com/poiesic/suggestit/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultServiceName is reported by the health check.
const DefaultServiceName = "suggestit"

// Backend is the service the handlers delegate to.
type Backend interface {
	Rank(ctx context.Context, req *core.RankRequest) (*core.RankResponse, error)
	Feedback(ctx context.Context, fb *core.Feedback) error
	TrackEvent(event *core.Event) error
	AddManual(ctx context.Context, kind core.ManualKind, content core.ManualContent, addedBy string) (*core.ManualRecord, error)
	ListManual(ctx context.Context, kind core.ManualKind) ([]*core.ManualRecord, error)
	Import(ctx context.Context, batch *ingest.Batch, opts ...ingest.Option) (*ingest.Result, error)
	Analytics(ctx context.Context, rng analytics.Range) (*analytics.Report, error)
	EmbeddingModel() string
}

// Server routes HTTP requests to a Backend.
type Server struct {
	backend  Backend
	gate     *KeyGate
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	name     string
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithKeyGate guards the API routes with gate.
func WithKeyGate(gate *KeyGate) Option {
	return func(s *Server) {
		s.gate = gate
	}
}

// WithMetrics records per-route request counts and latencies on collector and
// serves gatherer on /metrics.
func WithMetrics(collector *metrics.Collector, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = collector
		s.gatherer = gatherer
	}
}

// WithServiceName sets the name reported by the health check.
func WithServiceName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a server for backend.
func NewServer(backend Backend, opts ...Option) (*Server, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	s := &Server{
		backend: backend,
		gate:    NewKeyGate(nil, 0),
		name:    DefaultServiceName,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "api")
	return s, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.observeMiddleware)

	r.Get("/", s.health)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.gateMiddleware)
		r.Post("/suggest", s.suggest)
		r.Post("/feedback", s.feedback)
		r.Post("/data", s.addData)
		r.Get("/data", s.listData)
		r.Post("/batch_import", s.batchImport)
		r.Get("/analytics", s.analytics)
		r.Post("/event", s.event)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.name,
		"model":   s.backend.EmbeddingModel(),
	})
}
