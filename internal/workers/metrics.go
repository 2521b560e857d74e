package workers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type sweepMetrics struct {
	sweeps          prometheus.Counter
	skipped         prometheus.Counter
	subjectResults  *prometheus.CounterVec
	setupsCompleted prometheus.Counter
	duration        prometheus.Histogram
}

// newSweepMetrics registers on reg. A nil registry yields working but unregistered metrics.
func newSweepMetrics(reg prometheus.Registerer) *sweepMetrics {
	factory := promauto.With(reg)
	return &sweepMetrics{
		sweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "teamroom_sweeps_total",
			Help: "number of confirmation sweeps run",
		}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "teamroom_sweeps_skipped_total",
			Help: "number of sweep ticks skipped because another instance held the lease",
		}),
		subjectResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "teamroom_sweep_subject_results_total",
			Help: "forced confirmations by subject and result",
		}, []string{"subject", "result"}),
		setupsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "teamroom_sweep_setups_completed_total",
			Help: "setups moved to COMPLETED by the sweeper",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "teamroom_sweep_duration_seconds",
			Help:    "duration of a confirmation sweep",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
}
