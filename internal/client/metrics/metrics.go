// Package metrics exposes Prometheus instrumentation for the sync engine.
//
// Collectors:
//
//   - offlinekit_replays_total{outcome}: replay attempts by outcome
//     (success, retry, dropped)
//   - offlinekit_sync_passes_total{result}: drain passes by result
//     (completed, aborted)
//   - offlinekit_sync_triggers_dropped_total: triggers ignored because a pass
//     was already running
//   - offlinekit_sync_pass_duration_seconds: drain pass wall time
//   - offlinekit_pending_actions: queue length after the last change
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeDropped = "dropped"

	ResultCompleted = "completed"
	ResultAborted   = "aborted"
)

type Metrics struct {
	replays         *prometheus.CounterVec
	passes          *prometheus.CounterVec
	droppedTriggers prometheus.Counter
	passDuration    prometheus.Histogram
	pending         prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		replays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "offlinekit_replays_total",
				Help: "Pending action replay attempts by outcome.",
			},
			[]string{"outcome"},
		),
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "offlinekit_sync_passes_total",
				Help: "Drain passes by result.",
			},
			[]string{"result"},
		),
		droppedTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "offlinekit_sync_triggers_dropped_total",
			Help: "Sync triggers ignored while a pass was running.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "offlinekit_sync_pass_duration_seconds",
			Help:    "Duration of drain passes in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "offlinekit_pending_actions",
			Help: "Number of queued actions.",
		}),
	}
	reg.MustRegister(m.replays, m.passes, m.droppedTriggers, m.passDuration, m.pending)
	return m
}

func (m *Metrics) Replay(outcome string) {
	if m == nil {
		return
	}
	m.replays.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Pass(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
	m.passDuration.Observe(d.Seconds())
}

func (m *Metrics) TriggerDropped() {
	if m == nil {
		return
	}
	m.droppedTriggers.Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

// Handler serves the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
