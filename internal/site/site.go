// Package site wires the serve mode: route store, reconciler, render engine,
// response pipeline, live reload, metrics, events and the HTTP server.
package site

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/fest/internal/config"
	"git.home.luguber.info/inful/fest/internal/events"
	"git.home.luguber.info/inful/fest/internal/livereload"
	"git.home.luguber.info/inful/fest/internal/logfields"
	"git.home.luguber.info/inful/fest/internal/metrics"
	"git.home.luguber.info/inful/fest/internal/pipeline"
	"git.home.luguber.info/inful/fest/internal/render"
	"git.home.luguber.info/inful/fest/internal/routes"
	"git.home.luguber.info/inful/fest/internal/server"
)

// Site is a running fest server.
type Site struct {
	cfg        *config.Config
	engine     *render.Engine
	store      *routes.Store
	reconciler *routes.Reconciler
	hub        *livereload.Hub
	notifier   events.Notifier
	closeSink  func() error
	recorder   metrics.Recorder
	server     *server.Server
}

// New assembles a site from cfg. Nothing is started.
func New(cfg *config.Config) *Site {
	s := &Site{
		cfg:      cfg,
		engine:   render.New(render.WithCacheSize(cfg.Render.CacheSize)),
		store:    routes.NewStore(cfg.PagesDir),
		recorder: metrics.NoopRecorder{},
	}
	s.notifier, s.closeSink = events.Open(cfg.Events.NATSURL, cfg.Events.Subject)

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		s.recorder = metrics.NewPrometheusRecorder(reg)
		metricsHandler = metrics.HTTPHandler(reg)
	}
	if cfg.Dev.Enabled && cfg.Dev.LiveReload {
		s.hub = livereload.NewHub(s.recorder)
	}

	s.reconciler = routes.NewReconciler(cfg.PagesDir, s.store,
		routes.WithInvalidator(s.engine),
		routes.WithDebounce(cfg.Watch.Debounce),
		routes.WithResync(cfg.Watch.ResyncInterval),
		routes.OnPublish(s.published),
		routes.OnFailure(s.failed),
	)

	site := pipeline.Standard(pipeline.Options{
		Config:   cfg,
		Engine:   s.engine,
		Store:    s.store,
		Notifier: s.notifier,
		Metrics:  s.recorder,
	})
	s.server = server.New(cfg, server.Options{
		Site:       site,
		Store:      s.store,
		LiveReload: s.hub,
		Metrics:    metricsHandler,
		Recorder:   s.recorder,
	})
	return s
}

// Store returns the live route table store.
func (s *Site) Store() *routes.Store { return s.store }

// Handler returns the root HTTP handler.
func (s *Site) Handler() http.Handler { return s.server.Handler() }

// Server returns the HTTP server.
func (s *Site) Server() *server.Server { return s.server }

// Start publishes the initial route table, starts watching the pages
// directory and starts the HTTP server.
func (s *Site) Start(ctx context.Context) error {
	if err := s.reconciler.Start(ctx); err != nil {
		return err
	}
	if err := s.server.Start(ctx); err != nil {
		_ = s.reconciler.Stop()
		return err
	}
	return nil
}

// Stop shuts down the server, the watcher and the event sink.
func (s *Site) Stop(ctx context.Context) error {
	return errors.Join(
		s.server.Stop(ctx),
		s.reconciler.Stop(),
		s.closeSink(),
	)
}

// Serve starts the site and blocks until ctx is cancelled.
func (s *Site) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}

func (s *Site) published(_, next *routes.Table, reason string) {
	s.recorder.IncRouteRebuild(metrics.ResultSuccess)
	s.recorder.SetRoutes(next.Len())
	version := strconv.FormatUint(next.Version(), 10)
	if s.hub != nil {
		s.hub.Broadcast(version)
	}
	events.Emit(context.Background(), s.notifier, events.RouteTableRebuilt, map[string]any{
		logfields.KeyVersion: next.Version(),
		logfields.KeyRoutes:  next.Len(),
		"reason":             reason,
	})
}

func (s *Site) failed(err error, reason string) {
	s.recorder.IncRouteRebuild(metrics.ResultFailed)
	events.Emit(context.Background(), s.notifier, events.RouteTableFailed, map[string]any{
		logfields.KeyError: err.Error(),
		logfields.KeyDir:   s.cfg.PagesDir,
		"reason":           reason,
	})
}
