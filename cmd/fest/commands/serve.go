package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/fest/internal/site"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr       string `short:"a" name:"addr" help:"Listen address (overrides server.addr)"`
	Dev        bool   `short:"d" name:"dev" help:"Enable development overlays"`
	LiveReload bool   `name:"live-reload" help:"Reload pages over server-sent events instead of meta refresh (implies --dev)"`
	Metrics    bool   `name:"metrics" help:"Expose Prometheus metrics"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}
	if s.Dev || s.LiveReload {
		cfg.Dev.Enabled = true
	}
	if s.LiveReload {
		cfg.Dev.LiveReload = true
	}
	if s.Metrics {
		cfg.Metrics.Enabled = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loggerOf(g).Info("Starting fest", "addr", cfg.Server.Addr, "pages", cfg.PagesDir, "static", cfg.StaticDir, "dev", cfg.Dev.Enabled)
	return site.New(cfg).Serve(ctx)
}
