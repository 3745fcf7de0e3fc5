package routes

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/render"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("<p>"+name+"</p>"), 0o644))
	return p
}

func TestBuild_OneRoutePerPage(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "index.html")
	touch(t, dir, "about.html")
	touch(t, dir, "notes.md")
	touch(t, dir, "contact.tmpl")
	touch(t, dir, "404.html")
	touch(t, dir, "_layout.html")
	touch(t, dir, ".hidden.html")
	touch(t, dir, "style.css")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	touch(t, filepath.Join(dir, "nested"), "deep.html")

	table, err := Build(dir)
	require.NoError(t, err)

	paths := make([]string, 0, table.Len())
	for _, r := range table.Routes() {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"/", "/404", "/about", "/contact", "/notes"}, paths)

	index, ok := table.Lookup("/")
	require.True(t, ok)
	assert.Equal(t, "index", index.Name)
	assert.Equal(t, filepath.Join(dir, "index.html"), index.File)
	assert.Equal(t, render.KindTemplate, index.Kind)

	notes, ok := table.Lookup("/notes/")
	require.True(t, ok, "trailing slash should resolve")
	assert.Equal(t, render.KindMarkdown, notes.Kind)

	_, ok = table.Lookup("/_layout")
	assert.False(t, ok)
	_, ok = table.Lookup("/deep")
	assert.False(t, ok)
}

func TestBuild_MissingDirectory(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))

	file := touch(t, t.TempDir(), "index.html")
	_, err = Build(file)
	require.Error(t, err, "a file is not a pages directory")
}

func TestBuild_DuplicateBaseNames(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "about.html")
	touch(t, dir, "about.md")

	table, err := Build(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	r, _ := table.Lookup("/about")
	assert.Equal(t, filepath.Join(dir, "about.html"), r.File)
	require.Len(t, table.Conflicts(), 1)
	assert.Equal(t, filepath.Join(dir, "about.md"), table.Conflicts()[0].Skipped)
}

func TestBuild_NormalizesToNFC(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "cafe\u0301.html")

	table, err := Build(dir)
	require.NoError(t, err)
	_, ok := table.Lookup("/caf\u00e9")
	assert.True(t, ok)
	_, ok = table.Lookup("/cafe\u0301")
	assert.True(t, ok, "decomposed request path")
}

func TestFindTemplate(t *testing.T) {
	dir := t.TempDir()
	_, ok := FindTemplate(dir, "_layout")
	assert.False(t, ok)

	want := touch(t, dir, "_layout.tmpl")
	got, ok := FindTemplate(dir, "_layout")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStore_PublishSwapsAtomically(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "index.html")
	store := NewStore(dir)
	assert.Equal(t, 0, store.Load().Len())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			tbl := store.Load()
			// Every observed table is complete: either the empty seed or a full build.
			if tbl.Version() > 0 {
				if _, ok := tbl.Lookup("/"); !ok {
					t.Errorf("observed partial table version %d", tbl.Version())
					return
				}
			}
		}
	}()

	for i := 0; i < 50; i++ {
		table, err := Build(dir)
		require.NoError(t, err)
		store.Publish(table)
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, uint64(50), store.Load().Version())
}
