package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
	"git.home.luguber.info/inful/fest/internal/htmlpatch"
	"git.home.luguber.info/inful/fest/internal/livereload"
	"git.home.luguber.info/inful/fest/internal/logfields"
)

const overlayMarkup = `<style>
.fest-loading-overlay{position:fixed;top:0;left:0;width:100%;height:50px;background-color:rgba(0,0,0,.7);color:#fff;align-items:center;justify-content:center;z-index:9999;display:none}
.fest-loading-overlay.show{display:flex}
.fest-error-overlay{position:fixed;top:0;left:0;width:100%;height:100%;background-color:rgba(0,0,0,.8);color:#fff;align-items:center;justify-content:center;z-index:9999;display:none;flex-direction:column;padding:20px}
.fest-error-overlay.show{display:flex}
.fest-error-message{font-size:16px;text-align:center;max-width:800px;overflow:auto}
.fest-error-message pre{white-space:pre-wrap;word-wrap:break-word}
</style>
<div class="fest-loading-overlay" id="festLoadingOverlay"><div>Loading...</div></div>
<div class="fest-error-overlay" id="festErrorOverlay">
<div class="fest-error-message"><h2>An error occurred</h2><pre id="festErrorDetails"></pre></div>
</div>
<script>
document.addEventListener('DOMContentLoaded', function () {
  var overlay = document.getElementById('festLoadingOverlay');
  overlay.classList.add('show');
  window.addEventListener('load', function () { overlay.classList.remove('show'); });
});
window.addEventListener('error', function (event) {
  document.getElementById('festErrorOverlay').classList.add('show');
  document.getElementById('festErrorDetails').textContent = event.message || 'An unknown error occurred';
});
</script>
`

var devErrorPage = template.Must(template.New("dev-error").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>Error</title>
  <style>
    body { background-color: #0B2447; color: #fff; font-family: Arial, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
    .error-overlay { background-color: rgba(0, 0, 0, 0.8); color: #fff; padding: 20px; border-radius: 5px; max-width: 800px; width: 100%; text-align: center; }
    .error-overlay pre { white-space: pre-wrap; word-wrap: break-word; text-align: left; }
  </style>
</head>
<body>
  <div class="error-overlay">
    <h1>An error occurred</h1>
    <p>Status Code: {{.Status}}</p>
    <pre>{{range .Chain}}{{.}}
{{end}}</pre>
  </div>
</body>
</html>
`))

// MetaRefresh returns the tag reloading the page every interval.
func MetaRefresh(interval time.Duration) string {
	secs := strconv.FormatFloat(interval.Seconds(), 'f', -1, 64)
	return `<meta http-equiv="refresh" content="` + secs + `">`
}

// DevOverlay decorates HTML responses in development mode: a reload trigger
// before </head> (meta refresh, or the live reload client when enabled) and
// the loading/error overlay before </body>.
//
// Server errors from downstream and failures of the injection itself are
// contained here and replace the response with the dev error page. Client
// errors propagate so custom 404 pages still render.
func DevOverlay(o Options) Stage {
	adapter := ferrors.NewHTTPErrorAdapter(o.Logger)
	head := MetaRefresh(o.Config.Dev.CheckInterval)
	if o.Config.Dev.LiveReload {
		head = livereload.ScriptTag
	}

	return func(x *Exchange, next Next) error {
		if err := runNext(x, next); err != nil {
			status := adapter.StatusCodeFor(err)
			if status < http.StatusInternalServerError {
				return err
			}
			adapter.LogError(x.Request, err)
			writeDevError(x, status, err)
			return nil
		}
		if !x.Response.IsHTML() {
			return nil
		}
		if err := injectOverlay(x, head); err != nil {
			o.logger().Error("Dev overlay injection failed", logfields.Path(x.Request.URL.Path), logfields.Error(err))
			writeDevError(x, http.StatusInternalServerError, err)
		}
		return nil
	}
}

func injectOverlay(x *Exchange, head string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = ferrors.OverlayInjectionError(fmt.Sprintf("panic: %v", rec)).Build()
		}
	}()
	body, err := x.Response.Body()
	if err != nil {
		return ferrors.OverlayInjectionError("read response body").WithCause(err).Build()
	}
	body = htmlpatch.InjectHead(body, head)
	body = htmlpatch.InjectBody(body, overlayMarkup)
	x.Response.SetBody(body)
	return nil
}

func writeDevError(x *Exchange, status int, err error) {
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	var buf bytes.Buffer
	if terr := devErrorPage.Execute(&buf, struct {
		Status int
		Chain  []string
	}{status, chain}); terr != nil {
		buf.Reset()
		buf.WriteString("<pre>" + template.HTMLEscapeString(err.Error()) + "</pre>")
	}
	x.Response.Reset()
	x.Response.SetStatus(status)
	x.Response.SetContentType("text/html; charset=utf-8")
	x.Response.SetBody(buf.String())
}
