// Package metrics exports resource polling health as Prometheus series.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aegis-sync/internal/alerting"
	"aegis-sync/internal/config"
	"aegis-sync/internal/resource"
)

// Exporter turns store events and notifications into metrics. It owns its
// registry so several exporters can coexist in one process.
type Exporter struct {
	registry *prometheus.Registry

	degraded      *prometheus.GaugeVec
	polls         *prometheus.CounterVec
	pollDuration  *prometheus.HistogramVec
	lastPoll      *prometheus.GaugeVec
	notifications *prometheus.CounterVec
	backendDown   prometheus.Gauge
	monitorUp     *prometheus.GaugeVec
}

// NewExporter registers every series under cfg.Prefix.
func NewExporter(cfg config.MetricsConfig) *Exporter {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "aegis"
	}

	e := &Exporter{
		registry: prometheus.NewRegistry(),
		degraded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_resource_degraded",
			Help: "Whether the resource is serving placeholder data (1=degraded, 0=live)",
		}, []string{"resource"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_polls_total",
			Help: "Applied fetch outcomes by resource and outcome",
		}, []string{"resource", "outcome"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_poll_duration_seconds",
			Help:    "Fetch latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"resource"}),
		lastPoll: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_last_poll_timestamp",
			Help: "Unix timestamp of the last applied fetch outcome",
		}, []string{"resource"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_notifications_total",
			Help: "User-visible notifications by level",
		}, []string{"level"}),
		backendDown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_backend_down",
			Help: "Dashboard banner state (1=backend unavailable)",
		}),
		monitorUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_monitor_state",
			Help: "Reported monitor flags (running, thread_alive)",
		}, []string{"flag"}),
	}

	e.registry.MustRegister(
		e.degraded,
		e.polls,
		e.pollDuration,
		e.lastPoll,
		e.notifications,
		e.backendDown,
		e.monitorUp,
		collectors.NewGoCollector(),
	)

	return e
}

// Observe implements resource.Observer.
func (e *Exporter) Observe(ev resource.Event) {
	outcome := "ok"
	if ev.Degraded {
		outcome = "degraded"
	}
	e.degraded.WithLabelValues(ev.Resource).Set(boolToFloat(ev.Degraded))
	e.polls.WithLabelValues(ev.Resource, outcome).Inc()
	e.pollDuration.WithLabelValues(ev.Resource).Observe(ev.Duration.Seconds())
	if !ev.At.IsZero() {
		e.lastPoll.WithLabelValues(ev.Resource).Set(float64(ev.At.Unix()))
	}
}

// Notify implements alerting.Notifier.
func (e *Exporter) Notify(_ context.Context, n alerting.Notification) error {
	e.notifications.WithLabelValues(string(n.Level)).Inc()
	return nil
}

// SetBackendDown mirrors the dashboard banner.
func (e *Exporter) SetBackendDown(down bool) {
	e.backendDown.Set(boolToFloat(down))
}

// SetMonitor mirrors the reported monitor flags.
func (e *Exporter) SetMonitor(running, threadAlive bool) {
	e.monitorUp.WithLabelValues("running").Set(boolToFloat(running))
	e.monitorUp.WithLabelValues("thread_alive").Set(boolToFloat(threadAlive))
}

// Registry exposes the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var (
	_ resource.Observer = (*Exporter)(nil)
	_ alerting.Notifier = (*Exporter)(nil)
)
