// Package api provides HTTP handlers and the main API server logic for FunnelPipe.
//
// It exposes RESTful endpoints for managing tenant function definitions,
// exporting LLM tool declarations, and executing agent-issued function calls.
// The API integrates with the funcs, store, calendar, sheets, and notify modules.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/FunnelPipe/internal/funcs"
	"github.com/BTreeMap/FunnelPipe/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a functional option for configuring the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server wires the HTTP surface to the function engine.
type Server struct {
	st         store.Store
	catalog    *funcs.Catalog
	dispatcher *funcs.Dispatcher
	addr       string
}

// NewServer creates an API server around an already-wired engine.
func NewServer(st store.Store, catalog *funcs.Catalog, dispatcher *funcs.Dispatcher, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	slog.Debug("Server.NewServer: creating API server", "addr", cfg.Addr)
	return &Server{st: st, catalog: catalog, dispatcher: dispatcher, addr: cfg.Addr}
}

// Handler builds the route table. Split from Run so tests can drive the mux
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/functions", s.functionsHandler)
	mux.HandleFunc("/functions/", s.functionByIDHandler)
	mux.HandleFunc("/functions/execute", s.executeHandler)
	mux.HandleFunc("/tools", s.toolsHandler)
	mux.HandleFunc("/conversations/close", s.closeConversationHandler)
	mux.HandleFunc("/conversations/assign", s.assignUserHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Server.Run: FunnelPipe API listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}
