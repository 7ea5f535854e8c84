package pipe

import "github.com/prometheus/client_golang/prometheus"

var (
	// pipedEvents counts inbound events by side (user|agent|none) and outcome.
	pipedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoff_pipe_events_total",
			Help: "Inbound events seen by the piping middleware, by side and outcome.",
		},
		[]string{"side", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(pipedEvents)
}
