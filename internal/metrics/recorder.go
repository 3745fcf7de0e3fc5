package metrics

import "time"

// ResultLabel is the outcome label used by the result counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Result maps a success flag to its label.
func Result(ok bool) ResultLabel {
	if ok {
		return ResultSuccess
	}
	return ResultFailed
}

// Recorder is the metrics surface used by the server, reconciler and exporter.
type Recorder interface {
	IncRequest(method string, status int)
	ObserveRender(kind string, d time.Duration, result ResultLabel)
	IncRouteRebuild(result ResultLabel)
	SetRoutes(n int)
	IncExportPage(result ResultLabel)
	SetLiveReloadClients(n int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) IncRequest(string, int) {}
func (NoopRecorder) ObserveRender(string, time.Duration, ResultLabel) {}
func (NoopRecorder) IncRouteRebuild(ResultLabel) {}
func (NoopRecorder) SetRoutes(int) {}
func (NoopRecorder) IncExportPage(ResultLabel) {}
func (NoopRecorder) SetLiveReloadClients(int) {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
