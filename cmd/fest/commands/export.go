package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/fest/internal/events"
	"git.home.luguber.info/inful/fest/internal/export"
	"git.home.luguber.info/inful/fest/internal/history"
	"git.home.luguber.info/inful/fest/internal/render"
)

// ExportCmd implements the 'export' command.
type ExportCmd struct {
	Output      string `short:"o" name:"output" help:"Output directory (overrides export.output_dir)"`
	Concurrency int    `name:"concurrency" help:"Pages rendered in parallel (overrides export.concurrency)"`
	HistoryDB   string `name:"history-db" help:"SQLite database recording export runs (overrides export.history_db)"`
	NoCreate    bool   `name:"no-create" help:"Fail instead of creating a missing output directory"`
}

func (e *ExportCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if e.Output != "" {
		cfg.Export.OutputDir = e.Output
	}
	if e.Concurrency > 0 {
		cfg.Export.Concurrency = e.Concurrency
	}
	if e.HistoryDB != "" {
		cfg.Export.HistoryDB = e.HistoryDB
	}
	if e.NoCreate {
		cfg.Export.CreateOutputDir = false
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := loggerOf(g)
	notifier, closeNotifier := events.Open(cfg.Events.NATSURL, cfg.Events.Subject)
	defer func() { _ = closeNotifier() }()

	opts := []export.Option{export.WithNotifier(notifier), export.WithLogger(log)}
	if cfg.Export.HistoryDB != "" {
		store, err := history.NewSQLiteStore(cfg.Export.HistoryDB)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, export.WithHistory(store))
	}

	engine := render.New(render.WithCacheSize(cfg.Render.CacheSize))
	report, err := export.New(cfg, engine, opts...).Export(ctx)
	if report != nil {
		printReport(report)
	}
	return err
}

func printReport(r *export.Report) {
	for _, p := range r.Pages {
		if p.Error != "" {
			fmt.Fprintf(stdout, "  %s %s: %s\n", color.RedString("✗"), p.Name, p.Error)
			continue
		}
		fmt.Fprintf(stdout, "  %s %s -> %s\n", color.GreenString("✓"), p.Name, p.Output)
	}
	summary := fmt.Sprintf("%d exported, %d failed in %s", r.Succeeded, r.Failed, r.Duration.Round(time.Millisecond))
	if r.Failed > 0 {
		summary = color.YellowString(summary)
	}
	fmt.Fprintf(stdout, "Run %s: %s\n", r.RunID, summary)
}
