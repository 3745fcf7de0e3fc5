package pipeline

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracing(name string, trace *[]string) Stage {
	return func(x *Exchange, next Next) error {
		*trace = append(*trace, "> "+name)
		err := next()
		*trace = append(*trace, "< "+name)
		return err
	}
}

func TestPipeline_RunsStagesInRegistrationOrder(t *testing.T) {
	var trace []string
	p := New(func(x *Exchange) error {
		trace = append(trace, "terminal")
		x.Response.SetBody("ok")
		return nil
	}, tracing("a", &trace), tracing("b", &trace), tracing("c", &trace))

	x := NewExchange(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, p.Run(x))
	assert.Equal(t, []string{"> a", "> b", "> c", "terminal", "< c", "< b", "< a"}, trace)
	assert.Equal(t, 3, p.Len())
}

func TestPipeline_ShortCircuit(t *testing.T) {
	terminalCalled := false
	stop := func(x *Exchange, _ Next) error {
		x.Response.SetBody("short")
		return nil
	}
	p := New(func(*Exchange) error { terminalCalled = true; return nil }, stop)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, terminalCalled)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "short", rec.Body.String())
}

func TestPipeline_NextCalledTwice(t *testing.T) {
	twice := func(_ *Exchange, next Next) error {
		_ = next()
		return next()
	}
	p := New(func(*Exchange) error { return nil }, twice)
	err := p.Run(NewExchange(httptest.NewRequest(http.MethodGet, "/", nil)))
	require.ErrorIs(t, err, errNextCalledTwice)
}

func TestPipeline_UnhandledErrorsAndPanics(t *testing.T) {
	p := New(func(*Exchange) error { return errors.New("boom") })
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	p = New(func(*Exchange) error { panic("kaboom") })
	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPipeline_HeadWritesNoBody(t *testing.T) {
	p := New(func(x *Exchange) error { x.Response.SetBody("<p>x</p>"); return nil })
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "8", rec.Header().Get("Content-Length"))
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error { c.closed = true; return nil }

func TestResponse_BodyDrainsStream(t *testing.T) {
	r := NewResponse()
	assert.Equal(t, http.StatusNotFound, r.Status)
	assert.False(t, r.HasBody())

	src := &closeTracker{Reader: strings.NewReader("<html></html>")}
	r.SetContentType("text/html")
	r.SetStream(src)
	assert.True(t, r.IsStream())
	assert.Equal(t, http.StatusOK, r.Status)
	assert.True(t, r.IsHTML())

	body, err := r.Body()
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", body)
	assert.True(t, src.closed)
	assert.False(t, r.IsStream())
}

func TestResponse_SniffsContentType(t *testing.T) {
	r := NewResponse()
	r.SetBody("  <p>hi</p>")
	assert.True(t, r.IsHTML())

	r = NewResponse()
	r.SetBody("plain")
	assert.False(t, r.IsHTML())
	assert.Equal(t, "text/plain; charset=utf-8", r.ContentType())

	r = NewResponse()
	r.SetStatus(http.StatusTeapot)
	r.SetBody("x")
	assert.Equal(t, http.StatusTeapot, r.Status)

	r.Reset()
	assert.Equal(t, http.StatusNotFound, r.Status)
	assert.False(t, r.HasBody())
	assert.Empty(t, r.ContentType())
}
