package pipeline

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/fest/internal/events"
	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/logfields"
	"git.home.luguber.info/inful/fest/internal/routes"
)

var fallbackPages = template.Must(template.New("fallback").Parse(`
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.}}</title>
</head>
{{end}}
{{define "404"}}{{template "head" "404 Not Found"}}<body>
  <h1>404 Not Found</h1>
  <p>The page you are looking for does not exist.</p>
</body>
</html>
{{end}}
{{define "500"}}{{template "head" "500 Internal Server Error"}}<body>
  <h1>500 Internal Server Error</h1>
  <p>Something went wrong on our end. Please try again later.</p>
</body>
</html>
{{end}}
{{define "generic"}}{{template "head" "Error"}}<body>
  <h1>{{.Message}}</h1>
  <p>Status Code: {{.Status}}</p>
</body>
</html>
{{end}}`))

// ErrorCapture wraps all downstream stages. A returned error or panic becomes
// an error page: the custom 404 or 500 page from the pages directory when one
// exists, otherwise built-in markup. Downstream 404/500 responses without a
// body are turned into the same pages. Every failure is logged and sent to
// the notifier.
func ErrorCapture(o Options) Stage {
	adapter := ferrors.NewHTTPErrorAdapter(o.Logger)
	return func(x *Exchange, next Next) error {
		err := runNext(x, next)
		if err == nil {
			err = emptyResponseError(x)
			if err == nil {
				return nil
			}
		}

		status := adapter.StatusCodeFor(err)
		adapter.LogError(x.Request, err)
		events.Emit(x.Context(), o.Notifier, events.RequestError, map[string]any{
			logfields.KeyPath:   x.Request.URL.Path,
			logfields.KeyStatus: status,
			logfields.KeyError:  err.Error(),
		})

		x.Response.Reset()
		x.Response.SetStatus(status)
		x.Response.SetContentType("text/html; charset=utf-8")
		x.Response.SetBody(o.errorPage(x, status, err))
		return nil
	}
}

func emptyResponseError(x *Exchange) error {
	if x.Response.HasBody() {
		return nil
	}
	switch x.Response.Status {
	case http.StatusNotFound:
		return ferrors.NotFound(x.Request.URL.Path).Build()
	case http.StatusInternalServerError:
		return ferrors.NewError(ferrors.CategoryInternal, "empty response").
			WithStatus(http.StatusInternalServerError).
			Build()
	}
	return nil
}

// errorPage renders the custom page for status, falling back to built-in markup.
func (o Options) errorPage(x *Exchange, status int, err error) string {
	msg := err.Error()
	if c, ok := ferrors.AsClassified(err); ok {
		msg = c.Message()
	}

	name := ""
	switch {
	case status == http.StatusNotFound:
		name = "404"
	case status >= http.StatusInternalServerError:
		name = "500"
	}

	if name != "" && o.Config != nil && o.Engine != nil {
		if file, ok := routes.FindTemplate(o.Config.PagesDir, name); ok {
			data := o.data(x)
			data.Status = status
			data.Message = msg
			out, rerr := o.Engine.RenderString(x.Context(), file, data)
			if rerr == nil {
				return out
			}
			o.logger().Warn("Custom error page failed; using built-in page",
				logfields.File(file), logfields.Error(rerr))
		}
	}
	return FallbackPage(status, msg)
}

// FallbackPage returns the built-in error markup for status.
func FallbackPage(status int, message string) string {
	name := "generic"
	switch status {
	case http.StatusNotFound:
		name = "404"
	case http.StatusInternalServerError:
		name = "500"
	}
	var buf bytes.Buffer
	data := struct {
		Status  int
		Message string
	}{status, message}
	if err := fallbackPages.ExecuteTemplate(&buf, name, data); err != nil {
		return "<h1>" + template.HTMLEscapeString(message) + "</h1><p>Status Code: " + strconv.Itoa(status) + "</p>"
	}
	return buf.String()
}
