package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SessionsStarted    prometheus.Counter
	SessionsResolved   *prometheus.CounterVec
	SessionsSuperseded prometheus.Counter
	SessionsReaped     prometheus.Counter
	ChecksFired        prometheus.Counter
	FixFailures        prometheus.Counter
	FixLatencySeconds  prometheus.Histogram
	PersistFailures    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "egress_exit_sessions_started_total",
			Help: "Total number of exit-confirmation sessions started",
		}),
		SessionsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "egress_exit_sessions_resolved_total",
			Help: "Total number of exit-confirmation sessions resolved, by outcome",
		}, []string{"outcome", "reason"}),
		SessionsSuperseded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "egress_exit_sessions_superseded_total",
			Help: "Total number of pending sessions superseded by a newer exit event",
		}),
		SessionsReaped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "egress_exit_sessions_reaped_total",
			Help: "Total number of stale pending sessions force-resolved by the reaper",
		}),
		ChecksFired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "egress_exit_checks_fired_total",
			Help: "Total number of scheduled verification checks processed",
		}),
		FixFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "egress_position_fix_failures_total",
			Help: "Total number of position fix requests that failed or timed out",
		}),
		FixLatencySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "egress_position_fix_latency_seconds",
			Help:    "Latency of position fix acquisition",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "egress_session_persist_failures_total",
			Help: "Total number of session store writes that failed",
		}),
	}
}

func (m *Metrics) ObserveFixLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.FixLatencySeconds.Observe(d.Seconds())
}

func (m *Metrics) IncrementResolved(outcome, reason string) {
	if m == nil {
		return
	}
	m.SessionsResolved.WithLabelValues(outcome, reason).Inc()
}
