package pipeline

import (
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
)

// Assets serves files under dir whose path matches the request exactly,
// unmodified. Hidden files and directories are never served.
func Assets(dir string) Stage {
	return func(x *Exchange, next Next) error {
		if !isRead(x.Request) {
			return next()
		}
		rel := cleanRel(x.Request.URL.Path)
		if rel == "" {
			return next()
		}
		file, ok := resolve(dir, rel)
		if !ok {
			return next()
		}
		return serveFile(x, file)
	}
}

// Static serves <dir>/<path>.html (or <dir>/index.html for "/") and skips the
// rest of the pipeline when the file exists.
func Static(dir string) Stage {
	return func(x *Exchange, next Next) error {
		if !isRead(x.Request) {
			return next()
		}
		rel := cleanRel(x.Request.URL.Path)
		if rel == "" {
			rel = "index"
		}
		file, ok := resolve(dir, rel+".html")
		if !ok {
			return next()
		}
		return serveFile(x, file)
	}
}

func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// cleanRel returns the request path relative to the site root. Cleaning a
// rooted path removes every ".." that would climb above it.
func cleanRel(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// resolve maps rel onto dir and reports whether it names a visible regular file
// inside dir.
func resolve(dir, rel string) (string, bool) {
	if dir == "" {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	file := filepath.Join(dir, filepath.FromSlash(rel))
	within, err := filepath.Rel(dir, file)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", false
	}
	st, err := os.Stat(file)
	if err != nil || !st.Mode().IsRegular() {
		return "", false
	}
	return file, true
}

func serveFile(x *Exchange, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return ferrors.FileSystemError("open static file").WithCause(err).WithContext("file", file).Build()
	}
	ct := mime.TypeByExtension(filepath.Ext(file))
	if ct == "" {
		ct = "application/octet-stream"
	}
	x.Response.SetStatus(http.StatusOK)
	x.Response.SetContentType(ct)
	x.Response.SetStream(f)
	return nil
}
