package errors

// ErrorCategory groups errors by the layer that raised them. Adapters map
// categories to HTTP statuses and exit codes.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"     // unreadable or incomplete configuration
	CategoryValidation ErrorCategory = "validation" // bad input such as an unsupported method
	CategoryNotFound   ErrorCategory = "not_found"  // missing directory, page or run

	CategoryRender     ErrorCategory = "render"     // template parse or execute failure
	CategoryOverlay    ErrorCategory = "overlay"    // dev overlay injection failure
	CategoryFileSystem ErrorCategory = "filesystem" // reading pages or writing exports
	CategoryExport     ErrorCategory = "export"     // export run that produced nothing

	CategoryNetwork  ErrorCategory = "network"  // listener or NATS connection
	CategoryRuntime  ErrorCategory = "runtime"  // watcher and scheduler setup
	CategoryInternal ErrorCategory = "internal" // panics and unclassified errors
)

// ErrorSeverity decides the log level an error is reported at.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
	SeverityInfo    ErrorSeverity = "info"
)

// ErrorContext holds structured fields attached to an error. They are
// emitted as log attributes.
type ErrorContext map[string]any

// Set stores value under key, allocating the map on first use.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = ErrorContext{}
	}
	c[key] = value
	return c
}

// Get returns the value stored under key.
func (c ErrorContext) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// GetString returns the value under key when it is a string.
func (c ErrorContext) GetString(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}
