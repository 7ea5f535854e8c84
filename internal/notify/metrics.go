package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	webhookAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoff_webhook_attempts_total",
			Help: "Webhook delivery attempts by outcome (ok|error).",
		},
		[]string{"outcome"},
	)

	webhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoff_webhook_deliveries_total",
			Help: "Webhook notifications by final result (delivered|exhausted|dropped).",
		},
		[]string{"result"},
	)

	realtimeDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "handoff_realtime_dropped_total",
			Help: "Realtime messages dropped for slow subscribers.",
		},
	)
)

func init() {
	prometheus.MustRegister(webhookAttempts, webhookDeliveries, realtimeDropped)
}
