// Package pipeline implements fest's response pipeline: an ordered chain of
// stages wrapped around a terminal handler. Each stage receives the exchange
// and a continuation; it may act before calling next, rewrite the response
// after next returns, or short-circuit by not calling next at all.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/routes"
)

var errNextCalledTwice = errors.New("pipeline: next called multiple times")

// Exchange is one request and its in-flight response.
type Exchange struct {
	Request  *http.Request
	Response *Response
	// Route is set by the terminal handler when the request matched a page.
	Route *routes.Route
}

// NewExchange creates an exchange for r with an empty response.
func NewExchange(r *http.Request) *Exchange {
	return &Exchange{Request: r, Response: NewResponse()}
}

// Context returns the request context.
func (x *Exchange) Context() context.Context { return x.Request.Context() }

// Next runs the downstream stages.
type Next func() error

// Stage is one link of the pipeline.
type Stage func(x *Exchange, next Next) error

// Handler is the terminal handler that produces the initial response.
type Handler func(x *Exchange) error

// Pipeline composes stages in registration order around a terminal handler.
type Pipeline struct {
	stages   []Stage
	terminal Handler
	adapter  *ferrors.HTTPErrorAdapter
}

// New creates a pipeline. The first stage is the outermost.
func New(terminal Handler, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, terminal: terminal, adapter: ferrors.NewHTTPErrorAdapter(nil)}
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Run executes the pipeline against x.
func (p *Pipeline) Run(x *Exchange) error {
	return p.dispatch(x, 0)
}

func (p *Pipeline) dispatch(x *Exchange, i int) error {
	if i == len(p.stages) {
		if p.terminal == nil {
			return nil
		}
		return p.terminal(x)
	}
	called := false
	return p.stages[i](x, func() error {
		if called {
			return errNextCalledTwice
		}
		called = true
		return p.dispatch(x, i+1)
	})
}

// ServeHTTP runs the pipeline for r and writes the resulting response.
// Errors no stage handled become a plain status response.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	x := NewExchange(r)
	if err := safeCall(p.Run, x); err != nil {
		x.Response.Reset()
		status := p.adapter.StatusCodeFor(err)
		p.adapter.LogError(r, err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	if err := x.Response.WriteTo(w, r.Method == http.MethodHead); err != nil {
		slog.Debug("response write failed", "path", r.URL.Path, "error", err)
	}
}

// safeCall runs fn and turns a panic into an internal error.
func safeCall(fn func(*Exchange) error, x *Exchange) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = ferrors.NewError(ferrors.CategoryInternal, fmt.Sprintf("panic: %v", rec)).
				WithStatus(http.StatusInternalServerError).
				WithContext("path", x.Request.URL.Path).
				Build()
		}
	}()
	return fn(x)
}

// runNext calls next, converting a downstream panic into an error.
func runNext(x *Exchange, next Next) error {
	return safeCall(func(*Exchange) error { return next() }, x)
}
