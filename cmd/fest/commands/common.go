package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/fest/internal/config"
)

// Global is passed to every subcommand.
type Global struct {
	Logger *slog.Logger
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (defaults to fest.yaml or fest.yml in the working directory)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Serve the site, rebuilding routes as pages change"`
	Export  ExportCmd  `cmd:"" help:"Render every page to static HTML files"`
	Routes  RoutesCmd  `cmd:"" help:"Print the route table derived from the pages directory"`
	Init    InitCmd    `cmd:"" help:"Create a starter configuration, pages and static directories"`
	History HistoryCmd `cmd:"" help:"List recorded export runs"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// ConfigPath returns the configured file path, or the first default file
// found in the working directory.
func (c *CLI) ConfigPath() (string, error) {
	if c.Config != "" {
		return c.Config, nil
	}
	return config.Find(".")
}

// LoadConfig loads the configuration and resolves its relative directories
// against the directory holding the configuration file.
func (c *CLI) LoadConfig() (*config.Config, error) {
	path, err := c.ConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	ResolvePaths(cfg, filepath.Dir(path))
	return cfg, nil
}

// ResolvePaths rewrites relative directories in cfg to be rooted at base.
func ResolvePaths(cfg *config.Config, base string) {
	for _, p := range []*string{&cfg.PagesDir, &cfg.StaticDir, &cfg.Export.OutputDir, &cfg.Export.HistoryDB} {
		if *p == "" || *p == ":memory:" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(base, *p)
	}
}

func loggerOf(g *Global) *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
