// Package metrics contains prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// nolint:gochecknoglobals
var (
	Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialfeed",
		Name:      "operations_total",
		Help:      "Total operations executed by the store",
	}, []string{"operation"})
	QueueWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "socialfeed",
		Name:      "queue_wait_seconds",
		Help:      "Time an operation waited in the queue before execution",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
	ChangesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "socialfeed",
		Name:      "changes_published_total",
		Help:      "Total change notifications published",
	})
	ChangesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "socialfeed",
		Name:      "changes_dropped_total",
		Help:      "Total change notifications dropped because of full subscriber buffers",
	})
)

func init() {
	prometheus.MustRegister(Operations, QueueWait, ChangesPublished, ChangesDropped)
}

// ObserveQueueWait records how long an operation was queued.
func ObserveQueueWait(enqueued time.Time) {
	QueueWait.Observe(time.Since(enqueued).Seconds())
}

// IncOperation increments the counter of the operation.
func IncOperation(name string) { Operations.WithLabelValues(name).Inc() }
