package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/genlayer/glvault/pkg/audit"
	"github.com/genlayer/glvault/pkg/log"
	"github.com/genlayer/glvault/pkg/metrics"
	"github.com/genlayer/glvault/pkg/relay"
	"github.com/genlayer/glvault/pkg/vault"
)

// maxBodyBytes caps request bodies on every endpoint.
const maxBodyBytes = 1 << 20

// Server is the HTTP surface of the vault: the relay endpoint, the
// bearer-protected admin endpoints, health, and metrics.
type Server struct {
	store      *vault.Store
	relayH     *relay.Handler
	auditLog   *audit.Log
	adminToken string
	version    string
	addr       string
	startTime  time.Time

	mux        *http.ServeMux
	httpServer *http.Server
	logger     zerolog.Logger
}

// Options configures a Server.
type Options struct {
	Store      *vault.Store
	Relay      *relay.Handler
	AuditLog   *audit.Log
	AdminToken string
	Version    string

	// Addr is the listen address; "" means ":8080".
	Addr string
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Relay == nil || opts.AuditLog == nil {
		return nil, fmt.Errorf("store, relay handler, and audit log are required")
	}
	if opts.AdminToken == "" {
		return nil, fmt.Errorf("admin token is required")
	}

	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		store:      opts.Store,
		relayH:     opts.Relay,
		auditLog:   opts.AuditLog,
		adminToken: opts.AdminToken,
		version:    version,
		addr:       addr,
		startTime:  time.Now(),
		mux:        http.NewServeMux(),
		logger:     log.WithComponent("api"),
	}

	s.mux.HandleFunc("/proxy", s.handleProxy)
	s.mux.HandleFunc("/keys/register", s.requireAdmin(s.handleRegister))
	s.mux.HandleFunc("/keys/list", s.requireAdmin(s.handleList))
	s.mux.HandleFunc("/keys/rotate", s.requireAdmin(s.handleRotate))
	s.mux.HandleFunc("/keys/remove", s.requireAdmin(s.handleRemove))
	s.mux.HandleFunc("/keys/audit", s.requireAdmin(s.handleAudit))
	s.mux.HandleFunc("/health", s.requireAdmin(s.handleHealth))
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.Handle("/metrics", metrics.Handler())

	return s, nil
}

// Handler exposes the route table, for tests that drive the server through
// httptest instead of a real listener.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.logger.Info().Str("addr", s.addr).Str("version", s.version).Msg("vault API listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down vault API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}
