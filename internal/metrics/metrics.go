// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the background payout worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsBooked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentorapp_sessions_booked_total",
		Help: "Sessions successfully booked (slot claimed, payment intent created).",
	})

	SessionsCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentorapp_sessions_cancelled_total",
		Help: "Sessions cancelled by either party or an admin.",
	})

	PayoutsReleased = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentorapp_payouts_released_total",
		Help: "Payout holds released to mentors' available balance.",
	})

	PayoutsDeferred = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mentorapp_payouts_deferred_total",
		Help: "Payout holds deferred because the session is under dispute.",
	})

	ReleaseBatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mentorapp_payout_release_batch_seconds",
		Help:    "Wall time of one payout release batch.",
		Buckets: prometheus.DefBuckets,
	})
)

// Register attaches all collectors to the default registry. Call once at
// startup.
func Register() {
	prometheus.MustRegister(
		SessionsBooked,
		SessionsCancelled,
		PayoutsReleased,
		PayoutsDeferred,
		ReleaseBatchDuration,
	)
}
