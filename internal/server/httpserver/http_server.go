// Package httpserver runs the tccollector admin API.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/config"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
	"git.home.luguber.info/inful/tccollector/internal/server/handlers"
	smw "git.home.luguber.info/inful/tccollector/internal/server/middleware"
)

// Options carries the runtime dependencies of the admin server.
type Options struct {
	Collection handlers.Collection
	Alerts     alerts.Repository
	// Metrics serves the Prometheus exposition; nil leaves the path unmounted.
	Metrics   http.Handler
	StartTime time.Time
	Logger    *slog.Logger
}

// Server manages the admin HTTP endpoint.
type Server struct {
	cfg          *config.Config
	opts         Options
	logger       *slog.Logger
	errorAdapter *errors.HTTPErrorAdapter

	monitoringHandlers *handlers.MonitoringHandlers
	collectionHandlers *handlers.CollectionHandlers
	alertHandlers      *handlers.AlertHandlers

	mchain func(http.Handler) http.Handler

	mu          sync.Mutex
	adminServer *http.Server
	addr        net.Addr
}

// New constructs the admin server wiring.
func New(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}

	s := &Server{
		cfg:          cfg,
		opts:         opts,
		logger:       logger,
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
	}
	s.monitoringHandlers = handlers.NewMonitoringHandlers(opts.Collection, opts.StartTime, logger)
	s.collectionHandlers = handlers.NewCollectionHandlers(opts.Collection, handlers.Defaults{
		Source:   cfg.Source.Locator(),
		Interval: cfg.Source.Interval,
	}, logger)
	s.alertHandlers = handlers.NewAlertHandlers(opts.Alerts, logger)
	s.mchain = smw.Chain(logger, s.errorAdapter)
	return s
}

// Start binds the admin address and serves in the background. Bind errors
// are returned before any goroutine starts.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Daemon.AdminAddr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "admin server bind failed").
			WithContext("addr", s.cfg.Daemon.AdminAddr).
			Build()
	}
	return s.startAdminServerWithListener(ln)
}

// Stop gracefully shuts down the admin server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.adminServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr is the bound address, or empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.mchain(s.routes())
}

// startServerWithListener launches srv on a pre-bound listener.
func (s *Server) startServerWithListener(kind string, srv *http.Server, ln net.Listener) error {
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error(fmt.Sprintf("%s server error", kind), logfields.Error(err))
		}
	}()
	return nil
}
