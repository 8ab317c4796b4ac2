package exporter

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/node-pulse/apcupsd-exporter/internal/state"
)

// Register adds the status collector and the exporter's own health metrics
// to reg.
func Register(reg prometheus.Registerer, store *state.Store) error {
	failures := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exporter",
			Name:      "fetch_failures_total",
			Help:      "Number of failed status fetches from apcupsd.",
		},
		func() float64 {
			return float64(store.Health().TotalFailures)
		},
	)

	lastSuccess := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "exporter",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful status fetch, 0 if none yet.",
		},
		func() float64 {
			sample := store.Load()
			if sample == nil {
				return 0
			}
			return float64(sample.FetchedAt.UnixNano()) / 1e9
		},
	)

	for _, c := range []prometheus.Collector{NewCollector(store), failures, lastSuccess} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a fresh registry with everything the exporter serves
func NewRegistry(store *state.Store) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := Register(reg, store); err != nil {
		return nil, err
	}
	return reg, nil
}
