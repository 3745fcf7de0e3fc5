package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRoute      = "route"
	KeyPage       = "page"
	KeyFile       = "file"
	KeyDir        = "dir"
	KeyOp         = "op"
	KeyVersion    = "table_version"
	KeyRoutes     = "routes"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyRequestID  = "request_id"
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Route(p string) slog.Attr        { return slog.String(KeyRoute, p) }
func Page(name string) slog.Attr      { return slog.String(KeyPage, name) }
func File(path string) slog.Attr      { return slog.String(KeyFile, path) }
func Dir(path string) slog.Attr       { return slog.String(KeyDir, path) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func Version(v uint64) slog.Attr      { return slog.Uint64(KeyVersion, v) }
func Routes(n int) slog.Attr          { return slog.Int(KeyRoutes, n) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
