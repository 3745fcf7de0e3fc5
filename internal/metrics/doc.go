// Package metrics records fest's operational metrics.
//
// Components receive a Recorder. NoopRecorder is the default and does nothing;
// PrometheusRecorder registers collectors on a registry that HTTPHandler
// exposes at the configured metrics path.
package metrics
