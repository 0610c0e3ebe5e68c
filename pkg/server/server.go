// Package server exposes meeting analysis over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	"github.com/otherjamesbrown/focusflow/pkg/buildinfo"
	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
	"github.com/otherjamesbrown/focusflow/pkg/observability"
	"github.com/otherjamesbrown/focusflow/pkg/reports"
)

// ServiceName identifies the server in /version and pool metrics.
const ServiceName = "focusflow-serve"

// Analyzer is the analysis entry point the server calls.
type Analyzer interface {
	Analyze(ctx context.Context, agendaText string, in meeting.TranscriptInput) (*analysis.Report, error)
}

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// MaxUploadBytes bounds a multipart analyze request.
	MaxUploadBytes int64
	AllowedOrigins []string
}

// DefaultConfig returns the server defaults. WriteTimeout is generous because
// transcription of a long recording happens inside the request.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxUploadBytes:  200 << 20,
		AllowedOrigins:  []string{"*"},
	}
}

// Server serves the analyze and report endpoints.
type Server struct {
	cfg      Config
	analyzer Analyzer
	store    reports.Store
	pool     *pgxpool.Pool
	gatherer prometheus.Gatherer
	metrics  *observability.Metrics
	logger   logging.Logger
	features []string
}

// Option configures the server.
type Option func(*Server)

// WithStore enables report storage and GET /api/reports.
func WithStore(s reports.Store) Option {
	return func(srv *Server) {
		srv.store = s
	}
}

// WithPool adds a database check to /healthz.
func WithPool(p *pgxpool.Pool) Option {
	return func(srv *Server) {
		srv.pool = p
	}
}

// WithMetrics sets the HTTP metrics sink and the registry served on /metrics.
func WithMetrics(m *observability.Metrics, g prometheus.Gatherer) Option {
	return func(srv *Server) {
		srv.metrics = m
		srv.gatherer = g
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logging.Logger) Option {
	return func(srv *Server) {
		srv.logger = l
	}
}

// WithFeatures lists enabled integrations for /version.
func WithFeatures(features ...string) Option {
	return func(srv *Server) {
		srv.features = features
	}
}

// New creates a server.
func New(cfg Config, analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.MustGlobal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxUploadBytes <= 0 {
		s.cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	s.logger = s.logger.With(logging.F("component", "server"))
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.requestContext)
	router.Use(s.accessLog)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	router.Get("/healthz", s.handleHealth)
	router.Get("/version", buildinfo.Handler(ServiceName, s.features...))
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	router.Route("/api", func(api chi.Router) {
		api.Post("/analyze", s.handleAnalyze)
		api.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Get("/{id}", s.handleGetReport)
		})
	})
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", logging.F("addr", s.cfg.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}
