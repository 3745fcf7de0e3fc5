// Package export pre-renders every page to a standalone HTML file.
package export

import (
	"context"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/fest/internal/config"
	"git.home.luguber.info/inful/fest/internal/events"
	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/history"
	"git.home.luguber.info/inful/fest/internal/htmlpatch"
	"git.home.luguber.info/inful/fest/internal/logfields"
	"git.home.luguber.info/inful/fest/internal/metrics"
	"git.home.luguber.info/inful/fest/internal/pipeline"
	"git.home.luguber.info/inful/fest/internal/render"
	"git.home.luguber.info/inful/fest/internal/routes"
)

// RunRecorder persists finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run history.Run) error
}

// Exporter renders the pages directory into the output directory.
type Exporter struct {
	cfg      *config.Config
	engine   *render.Engine
	history  RunRecorder
	notifier events.Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithHistory records every run.
func WithHistory(r RunRecorder) Option { return func(e *Exporter) { e.history = r } }

// WithNotifier publishes an export.completed event per run.
func WithNotifier(n events.Notifier) Option { return func(e *Exporter) { e.notifier = n } }

// WithMetrics counts exported pages.
func WithMetrics(m metrics.Recorder) Option { return func(e *Exporter) { e.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Exporter) { e.logger = l } }

// New creates an exporter.
func New(cfg *config.Config, engine *render.Engine, opts ...Option) *Exporter {
	e := &Exporter{cfg: cfg, engine: engine, metrics: metrics.NoopRecorder{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = metrics.OrNoop(e.metrics)
	return e
}

// Report summarises one run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	OutputDir string
	Pages     []history.PageResult
	Succeeded int
	Failed    int
}

// OK reports whether at least one page succeeded or there were no pages.
func (r *Report) OK() bool { return r.Succeeded > 0 || r.Failed == 0 }

// Export renders every page. Page failures are logged and collected; the run
// fails only when the directories are missing or every page failed.
func (e *Exporter) Export(ctx context.Context) (*Report, error) {
	table, err := routes.Build(e.cfg.PagesDir)
	if err != nil {
		return nil, err
	}
	outDir := e.cfg.Export.OutputDir
	if err := e.ensureOutputDir(outDir); err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), StartedAt: time.Now(), OutputDir: outDir}
	log := e.logger.With(logfields.RunID(report.RunID))
	log.Info("Exporting pages", logfields.Dir(e.cfg.PagesDir), logfields.Routes(table.Len()), slog.String("output", outDir))

	pages := table.Routes()
	results := make([]history.PageResult, len(pages))
	layout, hasLayout := routes.FindTemplate(e.cfg.PagesDir, pipeline.LayoutName)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Export.Concurrency, 1))
	for i, page := range pages {
		g.Go(func() error {
			res := history.PageResult{
				Name:   page.Name,
				Source: page.File,
				Output: filepath.Join(outDir, page.Name+".html"),
			}
			start := time.Now()
			err := e.exportPage(gctx, page, res.Output, layout, hasLayout)
			res.Duration = time.Since(start)
			if err != nil {
				res.Error = err.Error()
				log.Error("Page export failed", logfields.Page(page.Name), logfields.File(page.File), logfields.Error(err))
			} else {
				log.Info("Generated static page", logfields.Page(page.Name), logfields.File(res.Output))
			}
			e.metrics.IncExportPage(metrics.Result(err == nil))
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report.Pages = results
	for _, r := range results {
		if r.Error == "" {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.Duration = time.Since(report.StartedAt)
	e.finish(ctx, log, report)

	if !report.OK() {
		return report, ferrors.NewError(ferrors.CategoryExport, "every page failed to export").
			WithContext("failed", report.Failed).
			WithContext("dir", e.cfg.PagesDir).
			Build()
	}
	return report, nil
}

func (e *Exporter) ensureOutputDir(dir string) error {
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		return nil
	case err == nil:
		return ferrors.DirectoryNotFound(dir).Build()
	case !os.IsNotExist(err):
		return ferrors.FileSystemError("stat output directory").WithCause(err).WithContext("dir", dir).Build()
	case !e.cfg.Export.CreateOutputDir:
		return ferrors.DirectoryNotFound(dir).WithCause(err).Build()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ferrors.FileSystemError("create output directory").WithCause(err).WithContext("dir", dir).Build()
	}
	return nil
}

// exportPage renders one page, wraps fragments in the layout and writes the
// result.
func (e *Exporter) exportPage(ctx context.Context, page routes.Route, out, layout string, hasLayout bool) error {
	data := pipeline.Data{Config: e.cfg, Page: page, Path: page.Path}
	body, err := e.engine.RenderString(ctx, page.File, data)
	if err != nil {
		return err
	}
	if hasLayout && !htmlpatch.IsDocument(body) {
		data.Body = template.HTML(body) //nolint:gosec // rendered page output
		if body, err = e.engine.RenderString(ctx, layout, data); err != nil {
			return err
		}
	}
	if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
		return ferrors.FileSystemError("write page").WithCause(err).WithContext("file", out).Build()
	}
	return nil
}

func (e *Exporter) finish(ctx context.Context, log *slog.Logger, report *Report) {
	log.Info("Static site generation completed",
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		logfields.DurationMS(float64(report.Duration.Microseconds())/1000))

	if e.history != nil {
		run := history.Run{
			ID:         report.RunID,
			StartedAt:  report.StartedAt,
			FinishedAt: report.StartedAt.Add(report.Duration),
			PagesDir:   e.cfg.PagesDir,
			OutputDir:  report.OutputDir,
			Succeeded:  report.Succeeded,
			Failed:     report.Failed,
			Pages:      report.Pages,
		}
		if err := e.history.RecordRun(ctx, run); err != nil {
			log.Warn("Failed to record export run", logfields.Error(err))
		}
	}

	events.Emit(ctx, e.notifier, events.ExportCompleted, map[string]any{
		logfields.KeyRunID: report.RunID,
		"succeeded":        report.Succeeded,
		"failed":           report.Failed,
	})
}
