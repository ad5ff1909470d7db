package httpserver

import (
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/logfields"
)

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.monitoringHandlers.HandleHealthCheck)
	mux.HandleFunc("GET /healthz", s.monitoringHandlers.HandleHealthCheck) // Kubernetes-style alias

	if s.cfg.Metrics.Enabled && s.opts.Metrics != nil {
		mux.Handle("GET "+s.cfg.Metrics.Path, s.opts.Metrics)
	}

	mux.HandleFunc("GET /api/collection/status", s.collectionHandlers.HandleStatus)
	mux.HandleFunc("GET /api/collection/jobs", s.collectionHandlers.HandleJobs)
	mux.HandleFunc("GET /api/collection/jobs/{id}", s.collectionHandlers.HandleJob)
	mux.HandleFunc("POST /api/collection/auto-update", s.collectionHandlers.HandleEnable)
	mux.HandleFunc("DELETE /api/collection/auto-update", s.collectionHandlers.HandleDisable)
	mux.HandleFunc("PUT /api/collection/auto-update/interval", s.collectionHandlers.HandleUpdateInterval)
	mux.HandleFunc("POST /api/collection/trigger", s.collectionHandlers.HandleTrigger)
	mux.HandleFunc("POST /api/collection/clean", s.collectionHandlers.HandleClean)
	mux.HandleFunc("POST /api/collection/pause", s.collectionHandlers.HandlePause)
	mux.HandleFunc("POST /api/collection/resume", s.collectionHandlers.HandleResume)

	mux.HandleFunc("GET /api/alerts", s.alertHandlers.HandleList)
	mux.HandleFunc("POST /api/alerts/{id}/ack", s.alertHandlers.HandleAck)
	return mux
}

func (s *Server) startAdminServerWithListener(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.adminServer = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("HTTP server started", logfields.URL("http://"+ln.Addr().String()))
	return s.startServerWithListener("admin", srv, ln)
}
