package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv(DevEnvVar, "")
	dir := t.TempDir()
	path := writeFile(t, dir, "fest.yaml", "static_dir: public\npages_dir: pages\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "public", cfg.StaticDir)
	assert.Equal(t, "pages", cfg.PagesDir)
	assert.False(t, cfg.UseFestUI)
	assert.False(t, cfg.Dev.Enabled)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Dev.CheckInterval)
	assert.Equal(t, "out", cfg.Export.OutputDir)
	assert.True(t, cfg.Export.CreateOutputDir)
	assert.Equal(t, 4, cfg.Export.Concurrency)
	assert.Equal(t, "/css/main.css", cfg.UI.Stylesheet)
	assert.Equal(t, "/js/main.js", cfg.UI.Script)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	cases := map[string]string{
		"no static": "pages_dir: pages\n",
		"no pages":  "static_dir: public\n",
		"empty":     "",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "fest.yaml", body)
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
		})
	}
}

func TestLoad_ExpandsEnvAndDevMode(t *testing.T) {
	t.Setenv("SITE_PAGES", "content")
	t.Setenv(DevEnvVar, "development")
	dir := t.TempDir()
	path := writeFile(t, dir, "fest.yaml", "static_dir: public\npages_dir: ${SITE_PAGES}\nuse_fest_ui: true\ndev:\n  check_interval: 2s\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "content", cfg.PagesDir)
	assert.True(t, cfg.Dev.Enabled)
	assert.True(t, cfg.UseFestUI)
	assert.Equal(t, 2*time.Second, cfg.Dev.CheckInterval)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	t.Setenv("FEST_TEST_STATIC", "from-env")
	dir := t.TempDir()
	writeFile(t, dir, ".env", "FEST_TEST_STATIC=from-file\nFEST_TEST_PAGES=pages-from-file\n")
	path := writeFile(t, dir, "fest.yaml", "static_dir: ${FEST_TEST_STATIC}\npages_dir: ${FEST_TEST_PAGES}\n")
	t.Cleanup(func() { _ = os.Unsetenv("FEST_TEST_PAGES") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.StaticDir)
	assert.Equal(t, "pages-from-file", cfg.PagesDir)
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "fest.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestValidate_UIAssetPaths(t *testing.T) {
	cfg := Default()
	cfg.StaticDir, cfg.PagesDir = "public", "pages"
	cfg.UseFestUI = true
	cfg.UI.Script = "js/main.js"
	require.Error(t, Validate(cfg))
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	_, err := Find(dir)
	require.Error(t, err)

	writeFile(t, dir, "fest.yml", "static_dir: a\npages_dir: b\n")
	p, err := Find(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fest.yml"), p)

	writeFile(t, dir, "fest.yaml", "static_dir: a\npages_dir: b\n")
	p, err = Find(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fest.yaml"), p)
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	t.Setenv(DevEnvVar, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "fest.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pages", cfg.PagesDir)
	assert.FileExists(t, filepath.Join(dir, "pages", "index.html"))
	assert.FileExists(t, filepath.Join(dir, "pages", "_layout.html"))
	assert.DirExists(t, filepath.Join(dir, "public"))

	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}
