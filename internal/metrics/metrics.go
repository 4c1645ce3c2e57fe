// Package metrics records run outcomes as Prometheus metrics and optionally
// pushes them to a Pushgateway when a run ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Fetch outcomes.
const (
	FetchOK          = "ok"
	FetchUnavailable = "unavailable"
	FetchSkipped     = "circuit_open"
)

// Alert outcomes.
const (
	AlertSent         = "sent"
	AlertFailed       = "failed"
	AlertDeduplicated = "deduplicated"
)

// Recorder holds the collectors for one process. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	alerts        *prometheus.CounterVec
	lastRun       prometheus.Gauge
	lastRunSent   prometheus.Gauge
}

// NewRecorder creates a Recorder on its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockalerts_price_fetches_total",
				Help: "Total number of price fetches",
			},
			[]string{"source", "outcome"}, // outcome: ok|unavailable|circuit_open
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockalerts_price_fetch_duration_seconds",
				Help:    "Price fetch duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockalerts_alerts_total",
				Help: "Total number of triggered alerts by outcome",
			},
			[]string{"source", "direction", "outcome"}, // outcome: sent|failed|deduplicated
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockalerts_last_run_timestamp",
			Help: "Unix timestamp of the last completed run",
		}),
		lastRunSent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stockalerts_last_run_alerts_sent",
			Help: "Alerts sent by the last completed run",
		}),
	}

	r.registry.MustRegister(r.fetches, r.fetchDuration, r.alerts, r.lastRun, r.lastRunSent)
	return r
}

// ObserveFetch records one price fetch.
func (r *Recorder) ObserveFetch(source, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(source, outcome).Inc()
	if outcome != FetchSkipped {
		r.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
	}
}

// ObserveAlert records the outcome of one triggered condition.
func (r *Recorder) ObserveAlert(source, direction, outcome string) {
	if r == nil {
		return
	}
	r.alerts.WithLabelValues(source, direction, outcome).Inc()
}

// ObserveRun records a completed run.
func (r *Recorder) ObserveRun(at time.Time, sent int) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(at.Unix()))
	r.lastRunSent.Set(float64(sent))
}

// Push sends every collected metric to the Pushgateway at url under job.
func (r *Recorder) Push(url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(r.registry).Push()
}
