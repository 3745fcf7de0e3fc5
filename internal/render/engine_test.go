package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
)

func writePage(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestKindOf(t *testing.T) {
	k, ok := KindOf("index.html")
	assert.True(t, ok)
	assert.Equal(t, KindTemplate, k)
	k, ok = KindOf("notes.MD")
	assert.True(t, ok)
	assert.Equal(t, KindMarkdown, k)
	_, ok = KindOf("style.css")
	assert.False(t, ok)
}

func TestRender_Template(t *testing.T) {
	dir := t.TempDir()
	p := writePage(t, dir, "hello.html", `<p>Hello {{.Name}}</p>`)

	out, err := New().RenderString(context.Background(), p, map[string]string{"Name": "<fest>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello &lt;fest&gt;</p>", out)
}

func TestRender_Markdown(t *testing.T) {
	dir := t.TempDir()
	p := writePage(t, dir, "about.md", "# About\n\nSome *text*.\n")

	out, err := New().RenderString(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Contains(t, out, `<h1 id="about">About</h1>`)
	assert.Contains(t, out, "<em>text</em>")
}

func TestRender_ExecutionErrorIsRenderError(t *testing.T) {
	dir := t.TempDir()
	p := writePage(t, dir, "broken.html", `{{template "missing"}}`)

	_, err := New().RenderString(context.Background(), p, nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRender))
}

func TestRender_ParseErrorIsRenderError(t *testing.T) {
	dir := t.TempDir()
	p := writePage(t, dir, "broken.html", `{{if}}`)

	_, err := New().RenderString(context.Background(), p, nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRender))
}

func TestRender_MissingFileIsNotFound(t *testing.T) {
	_, err := New().RenderString(context.Background(), filepath.Join(t.TempDir(), "gone.html"), nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestCache_InvalidateAndRevalidate(t *testing.T) {
	dir := t.TempDir()
	p := writePage(t, dir, "page.html", `v1`)
	e := New(WithCacheSize(4))
	ctx := context.Background()

	out, err := e.RenderString(ctx, p, nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", out)
	assert.True(t, e.Cached(p))

	e.Invalidate(p)
	assert.False(t, e.Cached(p))

	// A changed file is picked up even without explicit invalidation.
	_, err = e.RenderString(ctx, p, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, []byte("version two"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(p, future, future))
	out, err = e.RenderString(ctx, p, nil)
	require.NoError(t, err)
	assert.Equal(t, "version two", out)

	e.Purge()
	assert.False(t, e.Cached(p))
}

func TestCache_Disabled(t *testing.T) {
	dir := t.TempDir()
	p := writePage(t, dir, "page.html", `x`)
	e := New(WithCacheSize(0))
	_, err := e.RenderString(context.Background(), p, nil)
	require.NoError(t, err)
	assert.False(t, e.Cached(p))
}

func TestRender_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	p := writePage(t, dir, "page.html", `x`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().RenderString(ctx, p, nil)
	require.ErrorIs(t, err, context.Canceled)
}
