// Package render turns page files into HTML. Files ending in .html or .tmpl
// are html/template sources; .md files are Markdown converted with goldmark.
//
// Parsed pages are kept in a bounded LRU cache keyed by file path. Entries are
// revalidated against the file's size and modification time and can be dropped
// explicitly with Invalidate when a watcher reports a change.
package render

import (
	"bytes"
	"context"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
)

// Kind identifies how a page file is rendered.
type Kind string

const (
	KindTemplate Kind = "html"
	KindMarkdown Kind = "md"
)

var extensions = map[string]Kind{
	".html": KindTemplate,
	".tmpl": KindTemplate,
	".md":   KindMarkdown,
}

// KindOf reports the page kind for a file name.
func KindOf(name string) (Kind, bool) {
	k, ok := extensions[strings.ToLower(filepath.Ext(name))]
	return k, ok
}

// Extensions returns the recognised page extensions.
func Extensions() []string {
	return []string{".html", ".tmpl", ".md"}
}

type entry struct {
	modTime time.Time
	size    int64
	tmpl    *template.Template
	html    []byte
}

// Engine renders page files.
type Engine struct {
	mu    sync.Mutex
	cache *lru.Cache
	md    goldmark.Markdown
	funcs template.FuncMap
}

// Option configures an Engine.
type Option func(*Engine)

// WithCacheSize bounds the parse cache. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n <= 0 {
			e.cache = nil
			return
		}
		e.cache = lru.New(n)
	}
}

// WithFuncs adds template functions available to every page.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *Engine) {
		for k, v := range funcs {
			e.funcs[k] = v
		}
	}
}

// New creates an Engine with a 128 entry cache unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		cache: lru.New(128),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		funcs: defaultFuncs(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"safeHTML": func(s string) template.HTML { return template.HTML(s) }, // #nosec G203 -- page authors opt in explicitly
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"now":      time.Now,
	}
}

// Render executes the page at file with data and writes the result to w.
// Output is buffered so a failing template never produces partial output.
func (e *Engine) Render(ctx context.Context, w io.Writer, file string, data any) error {
	out, err := e.RenderBytes(ctx, file, data)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// RenderString is Render returning the output as a string.
func (e *Engine) RenderString(ctx context.Context, file string, data any) (string, error) {
	out, err := e.RenderBytes(ctx, file, data)
	return string(out), err
}

// RenderBytes executes the page at file with data.
func (e *Engine) RenderBytes(ctx context.Context, file string, data any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ent, err := e.load(file)
	if err != nil {
		return nil, err
	}
	if ent.tmpl == nil {
		return ent.html, nil
	}
	var buf bytes.Buffer
	if err := ent.tmpl.Execute(&buf, data); err != nil {
		return nil, ferrors.RenderError("template execution failed").
			WithCause(err).
			WithContext("file", file).
			Build()
	}
	return buf.Bytes(), nil
}

// Invalidate drops the cached parse of file.
func (e *Engine) Invalidate(file string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache != nil {
		e.cache.Remove(cacheKey(file))
	}
}

// Purge drops every cached parse.
func (e *Engine) Purge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache != nil {
		e.cache.Clear()
	}
}

// Cached reports whether file currently has a cache entry.
func (e *Engine) Cached(file string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache == nil {
		return false
	}
	_, ok := e.cache.Get(cacheKey(file))
	return ok
}

func (e *Engine) load(file string) (*entry, error) {
	st, err := os.Stat(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFound(file).WithCause(err).Build()
		}
		return nil, ferrors.FileSystemError("stat page").WithCause(err).WithContext("file", file).Build()
	}

	key := cacheKey(file)
	e.mu.Lock()
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			ent := v.(*entry)
			if ent.modTime.Equal(st.ModTime()) && ent.size == st.Size() {
				e.mu.Unlock()
				return ent, nil
			}
			e.cache.Remove(key)
		}
	}
	e.mu.Unlock()

	ent, err := e.parse(file, st)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.cache != nil {
		e.cache.Add(key, ent)
	}
	e.mu.Unlock()
	return ent, nil
}

func (e *Engine) parse(file string, st os.FileInfo) (*entry, error) {
	kind, ok := KindOf(file)
	if !ok {
		return nil, ferrors.RenderError("unsupported page extension").WithContext("file", file).Build()
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, ferrors.FileSystemError("read page").WithCause(err).WithContext("file", file).Build()
	}

	ent := &entry{modTime: st.ModTime(), size: st.Size()}
	switch kind {
	case KindMarkdown:
		var buf bytes.Buffer
		if err := e.md.Convert(src, &buf); err != nil {
			return nil, ferrors.RenderError("markdown conversion failed").WithCause(err).WithContext("file", file).Build()
		}
		ent.html = buf.Bytes()
	default:
		tmpl, err := template.New(filepath.Base(file)).Funcs(e.funcs).Parse(string(src))
		if err != nil {
			return nil, ferrors.RenderError("template parse failed").WithCause(err).WithContext("file", file).Build()
		}
		ent.tmpl = tmpl
	}
	return ent, nil
}

func cacheKey(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return filepath.Clean(file)
}
