package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "fest"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	requests       *prom.CounterVec
	renderDuration *prom.HistogramVec
	rebuilds       *prom.CounterVec
	routes         prom.Gauge
	exportPages    *prom.CounterVec
	lrClients      prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code",
		}, []string{"method", "status"}),
		renderDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Page template render duration",
			Buckets:   prom.DefBuckets,
		}, []string{"kind", "result"}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "route_rebuilds_total",
			Help:      "Route table rebuilds by outcome",
		}, []string{"result"}),
		routes: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "routes",
			Help:      "Number of routes in the live table",
		}),
		exportPages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "export_pages_total",
			Help:      "Exported pages by outcome",
		}, []string{"result"}),
		lrClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Connected live reload clients",
		}),
	}
	reg.MustRegister(pr.requests, pr.renderDuration, pr.rebuilds, pr.routes, pr.exportPages, pr.lrClients)
	return pr
}

func (p *PrometheusRecorder) IncRequest(method string, status int) {
	if p == nil {
		return
	}
	p.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (p *PrometheusRecorder) ObserveRender(kind string, d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.renderDuration.WithLabelValues(kind, string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRouteRebuild(result ResultLabel) {
	if p == nil {
		return
	}
	p.rebuilds.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetRoutes(n int) {
	if p == nil {
		return
	}
	p.routes.Set(float64(n))
}

func (p *PrometheusRecorder) IncExportPage(result ResultLabel) {
	if p == nil {
		return
	}
	p.exportPages.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil {
		return
	}
	p.lrClients.Set(float64(n))
}
