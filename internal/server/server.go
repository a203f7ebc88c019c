// Package server exposes the resolved dashboard session over a small
// REST surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/finbrook/fundview/internal/app"
	"github.com/finbrook/fundview/internal/common"
	"github.com/finbrook/fundview/internal/interfaces"
)

// Server wraps the HTTP server and application reference.
type Server struct {
	app          *app.App
	server       *http.Server
	logger       *common.Logger
	shutdownChan chan struct{}
}

// SetShutdownChannel sets the channel signaled when an HTTP shutdown is
// requested.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// NewServer creates a new HTTP REST API server.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var recorder interfaces.TelemetryRecorder
	if a.Telemetry != nil {
		recorder = a.Telemetry
	}
	handler := applyMiddleware(mux, a.Logger, recorder)

	host := a.Config.Server.Host
	port := a.Config.Server.Port

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Session
	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/api/selection", s.handleSelection)
	mux.HandleFunc("/api/selection/toggle", s.handleSelectionToggle)
	mux.HandleFunc("/api/selection/clear", s.handleSelectionClear)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/date", s.handleDate)

	// Charts
	mux.HandleFunc("/api/charts/recent.png", s.handleRecentChart)
	mux.HandleFunc("/api/charts/longterm.png", s.handleLongTermChart)
}
