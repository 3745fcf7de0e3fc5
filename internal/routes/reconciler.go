package routes

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/logfields"
)

// State is the reconciler's logical state.
type State int32

const (
	StateStable State = iota
	StateRebuilding
)

func (s State) String() string {
	if s == StateRebuilding {
		return "rebuilding"
	}
	return "stable"
}

// Invalidator drops cached parses of a page file.
type Invalidator interface {
	Invalidate(file string)
}

// PublishHook runs after a new table went live.
type PublishHook func(prev, next *Table, reason string)

// FailureHook runs after a rebuild failed; the previous table stays live.
type FailureHook func(err error, reason string)

// Reconciler keeps the table in a Store consistent with the pages directory.
type Reconciler struct {
	dir      string
	store    *Store
	cache    Invalidator
	debounce time.Duration
	resync   time.Duration

	onPublish []PublishHook
	onFailure []FailureHook

	state     atomic.Int32
	watching  atomic.Bool
	rebuildMu sync.Mutex

	watcher   *fsnotify.Watcher
	scheduler gocron.Scheduler

	timerMu    sync.Mutex
	timer      *time.Timer
	reason     string
	rebuildReq chan string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithInvalidator sets the cache dropped for changed files.
func WithInvalidator(i Invalidator) Option { return func(r *Reconciler) { r.cache = i } }

// WithDebounce sets the quiet period between the last event and the rebuild.
func WithDebounce(d time.Duration) Option { return func(r *Reconciler) { r.debounce = d } }

// WithResync schedules a full rebuild every d. Zero disables it.
func WithResync(d time.Duration) Option { return func(r *Reconciler) { r.resync = d } }

// OnPublish registers a hook called after each successful publish.
func OnPublish(h PublishHook) Option {
	return func(r *Reconciler) { r.onPublish = append(r.onPublish, h) }
}

// OnFailure registers a hook called after each failed rebuild.
func OnFailure(h FailureHook) Option {
	return func(r *Reconciler) { r.onFailure = append(r.onFailure, h) }
}

// NewReconciler creates a reconciler for dir publishing into store.
func NewReconciler(dir string, store *Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		dir:        filepath.Clean(dir),
		store:      store,
		debounce:   100 * time.Millisecond,
		rebuildReq: make(chan string, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State reports whether a rebuild is in progress.
func (r *Reconciler) State() State { return State(r.state.Load()) }

// Watching reports whether the directory watch is active.
func (r *Reconciler) Watching() bool { return r.watching.Load() }

// Start builds and publishes the initial table, then watches the directory.
// A missing directory at startup is returned as an error.
func (r *Reconciler) Start(ctx context.Context) error {
	if err := r.Rebuild(ctx, "initial"); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create fsnotify watcher").Build()
	}
	r.watcher = watcher
	r.addWatch()
	// The parent watch reports the directory being recreated after a removal.
	if err := watcher.Add(filepath.Dir(r.dir)); err != nil {
		slog.Debug("parent watch add failed", logfields.Dir(filepath.Dir(r.dir)), logfields.Error(err))
	}

	if r.resync > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			_ = watcher.Close()
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create gocron scheduler").Build()
		}
		if _, err := s.NewJob(
			gocron.DurationJob(r.resync),
			gocron.NewTask(func() { r.request("resync") }),
			gocron.WithName("route-table-resync"),
		); err != nil {
			_ = watcher.Close()
			return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to schedule resync").Build()
		}
		s.Start()
		r.scheduler = s
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(2)
	go r.watchLoop(loopCtx)
	go r.rebuildLoop(loopCtx)

	slog.Info("Watching pages directory", logfields.Dir(r.dir), logfields.Routes(r.store.Load().Len()))
	return nil
}

// Stop stops watching and waits for background work to finish.
func (r *Reconciler) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.timerMu.Lock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timerMu.Unlock()

	var err error
	if r.watcher != nil {
		err = r.watcher.Close()
	}
	if r.scheduler != nil {
		if serr := r.scheduler.Shutdown(); serr != nil && err == nil {
			err = serr
		}
	}
	r.wg.Wait()
	return err
}

// Rebuild regenerates the whole table from disk and publishes it. On failure the
// previous table stays live.
func (r *Reconciler) Rebuild(ctx context.Context, reason string) error {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	r.state.Store(int32(StateRebuilding))
	defer r.state.Store(int32(StateStable))

	next, err := Build(r.dir)
	if err != nil {
		slog.Warn("Route table rebuild failed; keeping previous table",
			logfields.Dir(r.dir), logfields.Error(err), slog.String("reason", reason))
		for _, h := range r.onFailure {
			h(err, reason)
		}
		return err
	}

	if r.watcher != nil && !r.watching.Load() {
		r.addWatch()
	}

	prev := r.store.Publish(next)
	slog.Info("Routes updated",
		logfields.Version(next.Version()), logfields.Routes(next.Len()), slog.String("reason", reason))
	for _, h := range r.onPublish {
		h(prev, next, reason)
	}
	return nil
}

func (r *Reconciler) addWatch() {
	if err := r.watcher.Add(r.dir); err != nil {
		slog.Warn("watch add failed", logfields.Dir(r.dir), logfields.Error(err))
		r.watching.Store(false)
		return
	}
	r.watching.Store(true)
}

func (r *Reconciler) watchLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.handleEvent(ev)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (r *Reconciler) rebuildLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-r.rebuildReq:
			_ = r.Rebuild(ctx, reason)
		}
	}
}

// handleEvent maps a filesystem event to add/change/remove, drops the cached
// parse of the affected file and schedules a rebuild. Events for siblings of
// the pages directory, seen through the parent watch, are dropped.
func (r *Reconciler) handleEvent(ev fsnotify.Event) {
	op := eventOp(ev.Op)
	if op == "" {
		return
	}
	name := filepath.Clean(ev.Name)
	if name == r.dir {
		if op == "remove" {
			r.watching.Store(false)
		}
		r.trigger(op + " " + r.dir)
		return
	}
	if filepath.Dir(name) != r.dir || shouldIgnoreEvent(name) {
		return
	}
	slog.Debug("Detected page change", logfields.Op(op), logfields.File(ev.Name))
	if r.cache != nil {
		r.cache.Invalidate(ev.Name)
	}
	r.trigger(op + " " + ev.Name)
}

func eventOp(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "add"
	case op.Has(fsnotify.Write):
		return "change"
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return "remove"
	default:
		return ""
	}
}

// trigger (re)starts the debounce timer; the rebuild runs once events go quiet.
func (r *Reconciler) trigger(reason string) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	r.reason = reason
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		r.timerMu.Lock()
		reason := r.reason
		r.timerMu.Unlock()
		r.request(reason)
	})
}

// request queues a rebuild; a request already pending absorbs it.
func (r *Reconciler) request(reason string) {
	select {
	case r.rebuildReq <- reason:
	default:
	}
}

// shouldIgnoreEvent returns true for hidden, swap and editor temp files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
