package routing

import "github.com/prometheus/client_golang/prometheus"

var (
	// cacheLookups counts lookups by result (hit|miss).
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoff_routing_cache_lookups_total",
			Help: "Routing cache lookups by result.",
		},
		[]string{"result"},
	)

	// cacheMutations counts applied mutations by kind and origin (local|remote).
	cacheMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "handoff_routing_cache_mutations_total",
			Help: "Routing cache mutations applied, by kind and origin.",
		},
		[]string{"kind", "origin"},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "handoff_routing_cache_entries",
			Help: "Current number of routing cache entries in this process.",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups, cacheMutations, cacheEntries)
}
