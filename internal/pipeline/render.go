package pipeline

import (
	"net/http"
	"time"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/metrics"
)

// Render is the terminal handler. It looks the request path up in the live
// route table and renders the matching page.
func Render(o Options) Handler {
	return func(x *Exchange) error {
		path := x.Request.URL.Path
		if x.Request.Method != http.MethodGet && x.Request.Method != http.MethodHead {
			return ferrors.ValidationError("method not allowed").
				WithStatus(http.StatusMethodNotAllowed).
				WithContext("method", x.Request.Method).
				Build()
		}

		// One snapshot per request.
		table := o.Store.Load()
		route, ok := table.Lookup(path)
		if !ok {
			return ferrors.NotFound(path).Build()
		}
		x.Route = &route

		start := time.Now()
		out, err := o.Engine.RenderBytes(x.Context(), route.File, o.data(x))
		o.recorder().ObserveRender(string(route.Kind), time.Since(start), metrics.Result(err == nil))
		if err != nil {
			if !ferrors.IsClassified(err) {
				err = ferrors.RenderError("page render failed").WithCause(err).WithContext("file", route.File).Build()
			}
			return err
		}

		x.Response.SetContentType("text/html; charset=utf-8")
		x.Response.SetBody(string(out))
		return nil
	}
}
