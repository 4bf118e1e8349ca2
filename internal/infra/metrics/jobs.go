package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsProcessedTotal, jobStageDuration, jobsEvictedTotal) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipeline_jobs_processed_total",
		Help: "Total number of pipeline jobs reaching a terminal state, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed', 'cancelled'
)

var jobStageDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Wall time spent in each pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	},
	[]string{"stage"},
)

var jobsEvictedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "pipeline_jobs_evicted_total",
		Help: "Terminal jobs removed by the TTL janitor.",
	},
)

func IncJob(status string) {
	jobsProcessedTotal.WithLabelValues(status).Inc()
}

func ObserveStage(stage string, d time.Duration) {
	jobStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func AddJobsEvicted(n int) {
	jobsEvictedTotal.Add(float64(n))
}
