// Package server exposes the gateway over HTTP: the catch-all mediation
// handler plus the control plane (messages, push, websocket, health).
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/payoff/internal/app"
	"github.com/bobmcallan/payoff/internal/common"
)

// Server wraps the HTTP server and application reference.
type Server struct {
	app    *app.App
	server *http.Server
	logger *common.Logger
}

// NewServer creates the gateway HTTP server.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := applyMiddleware(mux, a.Logger)

	host := a.Config.Server.Host
	port := a.Config.Server.Port

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
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
		Msg("Starting gateway server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// registerRoutes sets up the control plane and the catch-all mediator.
// Gateway-owned endpoints live under /_gateway/ so they can never shadow an
// upstream API path.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	auth := controlAuthMiddleware(s.app.Config.Auth.JWTSecret, s.logger)

	mux.HandleFunc("/_gateway/health", s.handleHealth)
	mux.HandleFunc("/_gateway/version", s.handleVersion)
	mux.HandleFunc("/_gateway/status", s.handleStatus)
	mux.Handle("/_gateway/message", auth(http.HandlerFunc(s.handleMessage)))
	mux.Handle("/_gateway/push", auth(http.HandlerFunc(s.handlePush)))
	mux.HandleFunc("/_gateway/calc/", s.handleCalculation)
	mux.HandleFunc("/_gateway/ws", s.app.Hub.ServeWS)

	// Everything else is intercepted and mediated.
	mux.HandleFunc("/", s.handleGateway)
}
