package routes

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/logfields"
	"git.home.luguber.info/inful/fest/internal/render"
)

// IndexName is the page mapped to the root path.
const IndexName = "index"

// Build lists dir (non-recursively) and returns a fresh table with one route per
// page file. Files starting with "_" or "." are partials and get no route.
func Build(dir string) (*Table, error) {
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		b := ferrors.DirectoryNotFound(dir)
		if err != nil {
			b = b.WithCause(err)
		}
		return nil, b.Build()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ferrors.FileSystemError("read pages directory").WithCause(err).WithContext("dir", dir).Build()
	}

	t := &Table{dir: dir, builtAt: time.Now(), routes: make(map[string]Route, len(entries))}
	for _, e := range entries {
		name := norm.NFC.String(e.Name())
		if !IsPageFile(name) {
			continue
		}
		file := filepath.Join(dir, e.Name())
		if !isRegular(e, file) {
			continue
		}
		kind, _ := render.KindOf(name)
		base := strings.TrimSuffix(name, filepath.Ext(name))
		path := RoutePath(base)

		if existing, dup := t.routes[path]; dup {
			t.conflicts = append(t.conflicts, Conflict{Path: path, Kept: existing.File, Skipped: file})
			slog.Warn("Duplicate page for route, keeping first", logfields.Route(path), logfields.File(file), slog.String("kept", existing.File))
			continue
		}
		t.routes[path] = Route{Path: path, Name: base, File: file, Kind: kind}
	}
	return t, nil
}

// RoutePath maps a page base name to its URL path.
func RoutePath(base string) string {
	if base == IndexName {
		return "/"
	}
	return "/" + base
}

// IsPageFile reports whether a file name is a routable page.
func IsPageFile(name string) bool {
	if name == "" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := render.KindOf(name)
	return ok
}

// FindTemplate returns the file in dir named base with any page extension.
// It is used for partials such as "_layout" and error pages such as "404".
func FindTemplate(dir, base string) (string, bool) {
	for _, ext := range render.Extensions() {
		p := filepath.Join(dir, base+ext)
		if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

func isRegular(e fs.DirEntry, file string) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink != 0 {
		st, err := os.Stat(file)
		return err == nil && st.Mode().IsRegular()
	}
	return false
}
