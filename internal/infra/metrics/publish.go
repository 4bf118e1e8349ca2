package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(publishBatchesTotal, publishWarningsTotal) }

var publishBatchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notion_publish_batches_total",
		Help: "Block batches sent to the publishing API, labeled by outcome.",
	},
	[]string{"outcome"}, // 'ok', 'failed'
)

var publishWarningsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "notion_publish_warnings_total",
		Help: "Batches permanently dropped after exhausting retries.",
	},
)

func IncPublishBatch(outcome string) {
	publishBatchesTotal.WithLabelValues(outcome).Inc()
}

func IncPublishWarning() {
	publishWarningsTotal.Inc()
}
