package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediacache/internal/api"
	"mediacache/internal/logging"
	"mediacache/internal/processor"
)

// Options wires a Server.
type Options struct {
	Bind     string
	Items    api.ItemReader
	LastRun  processor.LastRunReader
	MaxAge   time.Duration
	Gatherer prometheus.Gatherer
	// LogPath enables /api/logs when set.
	LogPath string
	// Registerer receives the HTTP request metrics; nil skips them.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
	Now        func() time.Time
}

// Server is the status HTTP server.
type Server struct {
	bind     string
	logger   *slog.Logger
	items    *api.ItemService
	lastRun  processor.LastRunReader
	maxAge   time.Duration
	gatherer prometheus.Gatherer
	logPath  string
	now      func() time.Time
	router   chi.Router

	listener net.Listener
	server   *http.Server
}

// New builds the router. The server does not listen until Start.
func New(opts Options) *Server {
	logger := logging.NewComponentLogger(opts.Logger, "http")
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		bind:     strings.TrimSpace(opts.Bind),
		logger:   logger,
		items:    api.NewItemService(opts.Items),
		lastRun:  opts.LastRun,
		maxAge:   opts.MaxAge,
		gatherer: gatherer,
		logPath:  strings.TrimSpace(opts.LogPath),
		now:      now,
	}

	router := chi.NewRouter()
	router.Use(requestID)
	if opts.Registerer != nil {
		router.Use(newRequestMetrics(opts.Registerer).middleware)
	}
	router.Use(requestLogger(logger))
	router.Use(recoverer(logger))

	router.Get("/healthz", s.handleHealth)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/items", s.handleItems)
		r.Get("/items/{id}", s.handleItem)
		if s.logPath != "" {
			r.Get("/logs", s.handleLogs)
		}
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router = router

	s.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("http bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "http server stopped unexpectedly", "http_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the bind address"),
			)
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("http server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "http_server_started"),
	)
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
