package routes

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	files []string
}

func (r *recordingInvalidator) Invalidate(file string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, file)
}

func (r *recordingInvalidator) has(file string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.files {
		if f == file {
			return true
		}
	}
	return false
}

func hasRoute(store *Store, path string) bool {
	_, ok := store.Load().Lookup(path)
	return ok
}

func TestReconciler_ConvergesOnAddChangeRemove(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "index.html")
	store := NewStore(dir)
	inv := &recordingInvalidator{}

	var published sync.Mutex
	versions := []uint64{}
	r := NewReconciler(dir, store,
		WithInvalidator(inv),
		WithDebounce(20*time.Millisecond),
		OnPublish(func(_, next *Table, _ string) {
			published.Lock()
			versions = append(versions, next.Version())
			published.Unlock()
		}),
	)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop() })

	require.True(t, hasRoute(store, "/"))
	assert.True(t, r.Watching())

	about := touch(t, dir, "about.html")
	require.Eventually(t, func() bool { return hasRoute(store, "/about") }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(about, []byte("<p>changed</p>"), 0o644))
	require.Eventually(t, func() bool { return inv.has(about) }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(about))
	require.Eventually(t, func() bool { return !hasRoute(store, "/about") }, 3*time.Second, 10*time.Millisecond)
	assert.True(t, hasRoute(store, "/"))

	published.Lock()
	defer published.Unlock()
	require.NotEmpty(t, versions)
	assert.Equal(t, uint64(1), versions[0], "initial publish is version 1")
}

func TestReconciler_StartFailsWithoutDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	r := NewReconciler(dir, NewStore(dir))
	err := r.Start(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestReconciler_KeepsStaleTableWhenDirectoryVanishes(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "pages")
	require.NoError(t, os.Mkdir(dir, 0o755))
	touch(t, dir, "index.html")
	touch(t, dir, "about.html")

	store := NewStore(dir)
	failures := make(chan error, 4)
	r := NewReconciler(dir, store,
		WithDebounce(10*time.Millisecond),
		OnFailure(func(err error, _ string) {
			select {
			case failures <- err:
			default:
			}
		}),
	)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop() })
	before := store.Load()

	require.NoError(t, os.RemoveAll(dir))
	require.Eventually(t, func() bool { return !r.Watching() }, 3*time.Second, 10*time.Millisecond)
	err := r.Rebuild(context.Background(), "test")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.Same(t, before, store.Load(), "stale table stays live")
	assert.True(t, hasRoute(store, "/about"))
	assert.Equal(t, StateStable, r.State())
	require.NotEmpty(t, failures)

	// Recreating the directory and rebuilding restores the watch.
	require.NoError(t, os.Mkdir(dir, 0o755))
	touch(t, dir, "index.html")
	require.NoError(t, r.Rebuild(context.Background(), "manual"))
	assert.False(t, hasRoute(store, "/about"))
	assert.True(t, r.Watching())

	touch(t, dir, "late.html")
	require.Eventually(t, func() bool { return hasRoute(store, "/late") }, 3*time.Second, 10*time.Millisecond)
}

func TestReconciler_RewatchesRecreatedDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "pages")
	require.NoError(t, os.Mkdir(dir, 0o755))
	touch(t, dir, "index.html")

	store := NewStore(dir)
	r := NewReconciler(dir, store, WithDebounce(10*time.Millisecond))
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop() })

	require.NoError(t, os.RemoveAll(dir))
	require.Eventually(t, func() bool { return !r.Watching() }, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Mkdir(dir, 0o755))
	touch(t, dir, "index.html")
	touch(t, dir, "late.html")
	require.Eventually(t, func() bool { return r.Watching() && hasRoute(store, "/late") }, 3*time.Second, 10*time.Millisecond)

	touch(t, dir, "later.html")
	require.Eventually(t, func() bool { return hasRoute(store, "/later") }, 3*time.Second, 10*time.Millisecond)
}

func TestReconciler_IgnoresSiblingsOfPagesDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "pages")
	require.NoError(t, os.Mkdir(dir, 0o755))
	touch(t, dir, "index.html")

	inv := &recordingInvalidator{}
	store := NewStore(dir)
	r := NewReconciler(dir, store, WithInvalidator(inv), WithDebounce(10*time.Millisecond))
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop() })
	version := store.Load().Version()

	sibling := touch(t, root, "notes.html")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, version, store.Load().Version())
	assert.False(t, inv.has(sibling))
	assert.False(t, hasRoute(store, "/notes"))
}

func TestReconciler_PeriodicResync(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "index.html")
	store := NewStore(dir)
	r := NewReconciler(dir, store, WithResync(50*time.Millisecond))
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop() })

	start := store.Load().Version()
	require.Eventually(t, func() bool { return store.Load().Version() > start }, 3*time.Second, 10*time.Millisecond)
}

func TestShouldIgnoreEvent(t *testing.T) {
	assert.True(t, shouldIgnoreEvent("/p/.index.html.swp"))
	assert.True(t, shouldIgnoreEvent("/p/index.html~"))
	assert.True(t, shouldIgnoreEvent("/p/#index.html#"))
	assert.False(t, shouldIgnoreEvent("/p/index.html"))
}
