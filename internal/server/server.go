// Package server is the HTTP and websocket control surface for the UI
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chucky-1/papertrader/internal/server/ws"
	"github.com/chucky-1/papertrader/internal/trader"
)

// Config holds the HTTP server configuration
type Config struct {
	Host string
	Port int
}

// Server serves the session API and the websocket endpoint
type Server struct {
	httpServer *http.Server
}

// New registers all routes and builds the middleware chain
func New(cfg Config, tr *trader.Trader, hub *ws.Hub) *Server {
	mux := http.NewServeMux()
	h := &handlers{trader: tr}

	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("GET /api/session", h.getSession)
	mux.HandleFunc("POST /api/session/launch", h.launchSession)
	mux.HandleFunc("DELETE /api/session/error", h.clearError)
	mux.HandleFunc("GET /api/positions", h.listPositions)
	mux.HandleFunc("POST /api/trades", h.placeTrade)
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var handler http.Handler = mux
	handler = logging(handler)
	handler = cors(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks until the server stops
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests within the context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Handler exposes the routed handler for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
