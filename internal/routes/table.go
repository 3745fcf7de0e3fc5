// Package routes derives the URL route table from a pages directory and keeps
// it in sync with the directory while the server runs.
//
// A Table is an immutable snapshot. Store publishes snapshots with a single
// atomic pointer swap, so request handlers always see either the previous or the
// next table and never a partially built one.
package routes

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/fest/internal/render"
)

// Route maps a URL path to the page file rendered for it.
type Route struct {
	Path string
	Name string
	File string
	Kind render.Kind
}

// Conflict records a page file skipped because another file already claimed its path.
type Conflict struct {
	Path    string
	Kept    string
	Skipped string
}

// Table is an immutable route table snapshot.
type Table struct {
	dir       string
	version   uint64
	builtAt   time.Time
	routes    map[string]Route
	conflicts []Conflict
}

// Empty returns a table without routes.
func Empty(dir string) *Table {
	return &Table{dir: dir, routes: map[string]Route{}}
}

// Lookup returns the route for a request path. A trailing slash is ignored and
// the path is compared in NFC form.
func (t *Table) Lookup(path string) (Route, bool) {
	if t == nil {
		return Route{}, false
	}
	r, ok := t.routes[normalizePath(norm.NFC.String(path))]
	return r, ok
}

// Routes returns all routes ordered by path.
func (t *Table) Routes() []Route {
	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of routes.
func (t *Table) Len() int { return len(t.routes) }

// Version is assigned by Store.Publish; unpublished tables report 0.
func (t *Table) Version() uint64 { return t.version }

// Dir is the pages directory the table was built from.
func (t *Table) Dir() string { return t.dir }

// BuiltAt is when the table was built.
func (t *Table) BuiltAt() time.Time { return t.builtAt }

// Conflicts lists files skipped because of duplicate paths.
func (t *Table) Conflicts() []Conflict { return append([]Conflict(nil), t.conflicts...) }

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}

// Store holds the live table.
type Store struct {
	current atomic.Pointer[Table]
	version atomic.Uint64
}

// NewStore creates a store serving an empty table for dir.
func NewStore(dir string) *Store {
	s := &Store{}
	s.current.Store(Empty(dir))
	return s
}

// Load returns the live table. It is never nil.
func (s *Store) Load() *Table {
	return s.current.Load()
}

// Publish assigns the next version to t, makes it live and returns the table it replaced.
// t must not be shared before Publish returns.
func (s *Store) Publish(t *Table) *Table {
	t.version = s.version.Add(1)
	return s.current.Swap(t)
}
