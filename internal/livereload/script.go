package livereload

import (
	"log/slog"
	"net/http"
)

// Path is where the hub is mounted; ScriptPath serves the client script.
const (
	Path       = "/livereload"
	ScriptPath = "/livereload.js"
)

// Script connects to the hub and reloads the page when the version changes.
const Script = `(() => {
  if (window.__FEST_LR__) return;
  window.__FEST_LR__ = true;
  let current = null;
  function connect() {
    const es = new EventSource('` + Path + `');
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (current === null) { current = p.version; return; }
        if (p.version && p.version !== current) {
          console.log('[fest] routes changed, reloading');
          location.reload();
        }
      } catch (_) {}
    };
    es.onerror = () => { console.warn('[fest] livereload error - retrying'); es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`

// ScriptTag is the markup injected into dev pages.
const ScriptTag = `<script async src="` + ScriptPath + `"></script>`

// ScriptHandler serves Script.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write([]byte(Script)); err != nil {
			slog.Error("failed to write livereload script", "error", err)
		}
	})
}
