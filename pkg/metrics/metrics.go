package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Outbox relay
	OutboxEventsPublished prometheus.Counter
	OutboxEventsFailed    prometheus.Counter
	OutboxRelayLatency    prometheus.Histogram

	// Reconciliation consumer
	EventsReconciled *prometheus.CounterVec
	EventsRetried    prometheus.Counter
	ReconcileLatency prometheus.Histogram

	// Payment gateway
	GatewayRequests *prometheus.CounterVec
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		OutboxEventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_published_total",
			Help:      "Total number of outbox events published to the broker",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of outbox events that failed to publish",
		}),
		OutboxRelayLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_relay_duration_seconds",
			Help:      "Time spent relaying one outbox batch",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		EventsReconciled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_reconciled_total",
			Help:      "Total number of reconciled payment events by outcome",
		}, []string{"outcome"}),
		EventsRetried: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_retried_total",
			Help:      "Total number of payment events negatively acknowledged for retry",
		}),
		ReconcileLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time spent handling one payment event",
			Buckets:   prometheus.DefBuckets,
		}),
		GatewayRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Total number of payment gateway calls by operation and result",
		}, []string{"operation", "result"}),
	}
}
