package sync

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repo_sync_runs_total",
		Help: "Sync runs by result.",
	}, []string{"result"})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "repo_sync_duration_seconds",
		Help:    "Duration of sync runs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
	inProgressGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repo_sync_in_progress",
		Help: "1 while a sync run is active.",
	})
	hookFailureCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repo_sync_hook_failures_total",
		Help: "Post-sync hook failures by hook.",
	}, []string{"hook"})
)

// Metrics is the set of collectors a Coordinator reports to.
type Metrics struct {
	Runs         *prometheus.CounterVec
	Duration     prometheus.Histogram
	InProgress   prometheus.Gauge
	HookFailures *prometheus.CounterVec
}

// NewMetrics returns the process-wide sync collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		Runs:         runCounter,
		Duration:     runDuration,
		InProgress:   inProgressGauge,
		HookFailures: hookFailureCounter,
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRemoteUnreachable):
		return "remote_unreachable"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrSyncPanicked):
		return "panic"
	default:
		return "error"
	}
}
