// Package server exposes the response pipeline and fest's auxiliary endpoints
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/fest/internal/config"
	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/livereload"
	"git.home.luguber.info/inful/fest/internal/metrics"
	"git.home.luguber.info/inful/fest/internal/routes"
	smw "git.home.luguber.info/inful/fest/internal/server/middleware"
	"git.home.luguber.info/inful/fest/internal/version"
)

// HealthPath is the liveness endpoint.
const HealthPath = "/healthz"

// Options wires the handlers served next to the pipeline.
type Options struct {
	// Site handles every path not claimed by another endpoint.
	Site http.Handler
	// Store backs the health endpoint's route count.
	Store *routes.Store
	// LiveReload is mounted when set.
	LiveReload *livereload.Hub
	// Metrics serves Prometheus metrics when set.
	Metrics  http.Handler
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Server serves fest over HTTP.
type Server struct {
	cfg     *config.Config
	opts    Options
	handler http.Handler
	started time.Time

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
}

// New constructs the server and its router.
func New(cfg *config.Config, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{cfg: cfg, opts: opts, started: time.Now()}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(smw.Chain(s.opts.Logger, ferrors.NewHTTPErrorAdapter(s.opts.Logger), s.opts.Recorder))

	r.Get(HealthPath, s.handleHealth)
	if s.opts.Metrics != nil {
		r.Handle(s.cfg.Metrics.Path, s.opts.Metrics)
	}
	if s.opts.LiveReload != nil {
		r.Handle(livereload.Path, s.opts.LiveReload)
		r.Handle(livereload.ScriptPath, livereload.ScriptHandler())
	}
	if s.opts.Site != nil {
		r.Handle("/*", s.opts.Site)
	}
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the bound address once started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listener, failing fast if the address is taken, and serves
// in the background.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "http startup failed").
			WithContext("addr", s.cfg.Server.Addr).
			Build()
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: live reload streams are long-lived.
		IdleTimeout: 120 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error("http server error", "error", err)
		}
	}()
	s.opts.Logger.Info("HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if s.opts.LiveReload != nil {
		s.opts.LiveReload.Shutdown()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.opts.Logger.Info("HTTP server stopped")
	return nil
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Uptime       float64   `json:"uptime"`
	Routes       int       `json:"routes"`
	TableVersion uint64    `json:"table_version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.started).Seconds(),
	}
	if s.opts.Store != nil {
		table := s.opts.Store.Load()
		health.Routes = table.Len()
		health.TableVersion = table.Version()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.opts.Logger.Error("failed to encode health response", "error", err)
	}
}
