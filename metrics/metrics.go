// Package metrics provides a Prometheus-backed agent.MetricsRecorder and
// an HTTP exporter for the collected series.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agentrt"

// Recorder implements agent.MetricsRecorder against a Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	eventsTotal       *prometheus.CounterVec
	turnsStarted      *prometheus.CounterVec
	turnDuration      *prometheus.HistogramVec
	turnsFailed       *prometheus.CounterVec
	turnsInterrupted  *prometheus.CounterVec
	persistenceErrors *prometheus.CounterVec
	mailboxDepth      *prometheus.GaugeVec
}

// New creates a Recorder with its own Prometheus registry, pre-registered
// with the Go runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,

		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Total number of events processed by an agent, by kind.",
		}, []string{"agent", "kind"}),

		turnsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_started_total",
			Help:      "Total number of turns started.",
		}, []string{"agent"}),

		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Duration of completed turns in seconds.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"agent"}),

		turnsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_failed_total",
			Help:      "Total number of turns that ended in AgentTurnFailed.",
		}, []string{"agent"}),

		turnsInterrupted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_interrupted_total",
			Help:      "Total number of turns interrupted, by reason.",
		}, []string{"agent", "reason"}),

		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Total number of event store append failures.",
		}, []string{"agent"}),

		mailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mailbox_depth",
			Help:      "Number of items currently queued in an agent's mailbox.",
		}, []string{"agent"}),
	}

	reg.MustRegister(
		r.eventsTotal,
		r.turnsStarted,
		r.turnDuration,
		r.turnsFailed,
		r.turnsInterrupted,
		r.persistenceErrors,
		r.mailboxDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler returns an http.Handler serving the collected series in the
// Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying Prometheus registry, for tests and for
// wiring additional collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
