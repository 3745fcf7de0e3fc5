package export

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/fest/internal/config"
	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/history"
	"git.home.luguber.info/inful/fest/internal/render"
)

type memHistory struct {
	mu   sync.Mutex
	runs []history.Run
}

func (m *memHistory) RecordRun(_ context.Context, run history.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func setup(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.PagesDir = filepath.Join(root, "pages")
	cfg.StaticDir = filepath.Join(root, "public")
	cfg.Export.OutputDir = filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(cfg.PagesDir, 0o755))
	return cfg
}

func writePage(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.PagesDir, name), []byte(content), 0o644))
}

func TestExport_PartialFailure(t *testing.T) {
	cfg := setup(t)
	writePage(t, cfg, "index.html", `<p>home of {{.Config.PagesDir}}</p>`)
	writePage(t, cfg, "about.md", "# About\n")
	writePage(t, cfg, "broken.html", `{{template "missing"}}`)

	logs := &syncBuffer{}
	hist := &memHistory{}
	exp := New(cfg, render.New(),
		WithHistory(hist),
		WithLogger(slog.New(slog.NewTextHandler(logs, nil))),
	)
	report, err := exp.Export(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.NotEmpty(t, report.RunID)

	index, err := os.ReadFile(filepath.Join(cfg.Export.OutputDir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>home of "+cfg.PagesDir+"</p>", string(index))
	assert.FileExists(t, filepath.Join(cfg.Export.OutputDir, "about.html"))
	assert.NoFileExists(t, filepath.Join(cfg.Export.OutputDir, "broken.html"))

	assert.Equal(t, 1, strings.Count(logs.String(), "Page export failed"))
	assert.Contains(t, logs.String(), "page=broken")

	require.Len(t, hist.runs, 1)
	assert.Equal(t, report.RunID, hist.runs[0].ID)
	assert.Len(t, hist.runs[0].Pages, 3)
}

func TestExport_AllFailed(t *testing.T) {
	cfg := setup(t)
	writePage(t, cfg, "a.html", `{{template "missing"}}`)
	writePage(t, cfg, "b.html", `{{template "missing"}}`)

	report, err := New(cfg, render.New()).Export(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryExport))
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Failed)
}

func TestExport_NoPagesSucceeds(t *testing.T) {
	cfg := setup(t)
	writePage(t, cfg, "_partial.html", `<p>x</p>`)
	report, err := New(cfg, render.New()).Export(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Succeeded)
	assert.True(t, report.OK())
}

func TestExport_MissingDirectories(t *testing.T) {
	cfg := setup(t)
	require.NoError(t, os.RemoveAll(cfg.PagesDir))
	_, err := New(cfg, render.New()).Export(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))

	cfg = setup(t)
	writePage(t, cfg, "index.html", `<p>x</p>`)
	cfg.Export.CreateOutputDir = false
	_, err = New(cfg, render.New()).Export(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.NoDirExists(t, cfg.Export.OutputDir)
}

func TestExport_WrapsFragmentsInLayout(t *testing.T) {
	cfg := setup(t)
	cfg.Export.Concurrency = 1
	writePage(t, cfg, "_layout.html", `<!DOCTYPE html><title>{{.Page.Name}}</title><main>{{.Body}}</main>`)
	writePage(t, cfg, "about.html", `<p>about</p>`)

	_, err := New(cfg, render.New()).Export(context.Background())
	require.NoError(t, err)
	out, err := os.ReadFile(filepath.Join(cfg.Export.OutputDir, "about.html"))
	require.NoError(t, err)
	assert.Equal(t, `<!DOCTYPE html><title>about</title><main><p>about</p></main>`, string(out))
	assert.NoFileExists(t, filepath.Join(cfg.Export.OutputDir, "_layout.html"))
}
