package errors

import (
	stdErrors "errors"
	"log/slog"
	"net/http"
)

// HTTPErrorAdapter determines status codes for errors and logs them for HTTP handlers.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates a new HTTP error adapter with an optional slog logger.
// If logger is nil, the default package logger will be used.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// StatusCodeFor determines the HTTP status code for a given error. A status
// declared by the error wins; otherwise the category decides. Unknown errors map to 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var sc StatusCoder
	if stdErrors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}

	if c, ok := AsClassified(err); ok {
		switch c.Category() {
		case CategoryValidation:
			return http.StatusBadRequest
		case CategoryNotFound:
			return http.StatusNotFound
		case CategoryNetwork:
			return http.StatusBadGateway
		case CategoryRuntime:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}

	return http.StatusInternalServerError
}

// LogError logs err for request r with a level derived from its severity.
func (a *HTTPErrorAdapter) LogError(r *http.Request, err error) {
	if err == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.String("error", err.Error()),
	}
	if c, ok := AsClassified(err); ok {
		attrs = append(attrs, slog.String("category", string(c.Category())))
		a.logger.LogAttrs(r.Context(), slogLevelFromSeverity(c.Severity()), "Request failed", attrs...)
		return
	}
	a.logger.LogAttrs(r.Context(), slog.LevelError, "Request failed", attrs...)
}

func slogLevelFromSeverity(s ErrorSeverity) slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
