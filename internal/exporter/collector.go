package exporter

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/node-pulse/apcupsd-exporter/internal/logger"
	"github.com/node-pulse/apcupsd-exporter/internal/state"
)

const namespace = "apcupsd"

// infoKeys are the descriptive status keys reported as labels on the info
// metric instead of as gauges. Order matches the label names.
var infoKeys = []string{
	"APC",
	"HOSTNAME",
	"UPSNAME",
	"VERSION",
	"CABLE",
	"MODEL",
	"UPSMODE",
	"DRIVER",
	"APCMODEL",
}

var infoKeySet = func() map[string]bool {
	m := make(map[string]bool, len(infoKeys))
	for _, k := range infoKeys {
		m[k] = true
	}
	return m
}()

// Collector turns the latest stored snapshot into metrics on every scrape.
// The set of gauges follows whatever the UPS reports, so it is an unchecked
// collector and describes nothing up front.
type Collector struct {
	store    *state.Store
	infoDesc *prometheus.Desc
}

// NewCollector creates a collector reading from store
func NewCollector(store *state.Store) *Collector {
	labels := make([]string, len(infoKeys))
	for i, k := range infoKeys {
		labels[i] = strings.ToLower(k)
	}

	return &Collector{
		store: store,
		infoDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "info"),
			"APC UPS daemon information",
			labels, nil,
		),
	}
}

// Ensure Collector implements prometheus.Collector
var _ prometheus.Collector = (*Collector)(nil)

// Describe sends nothing, which makes the collector unchecked
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {}

// Collect emits the info metric and one gauge per numeric status value
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	sample := c.store.Load()
	if sample == nil {
		return
	}
	snap := sample.Snapshot

	values := make([]string, len(infoKeys))
	for i, k := range infoKeys {
		values[i] = snap[k]
	}
	if info, err := prometheus.NewConstMetric(c.infoDesc, prometheus.GaugeValue, 1, values...); err != nil {
		logger.Warn("Skipping info metric", logger.Err(err))
	} else {
		ch <- info
	}

	seen := map[string]string{
		prometheus.BuildFQName(namespace, "", "info"): "",
	}

	for _, key := range snap.Keys() {
		if infoKeySet[key] {
			continue
		}

		v, err := strconv.ParseFloat(snap[key], 64)
		if err != nil {
			continue
		}

		name := MetricName(key)
		if other, dup := seen[name]; dup {
			logger.Debug("Skipping status key with clashing metric name",
				logger.String("key", key),
				logger.String("clashes_with", other),
				logger.String("metric", name))
			continue
		}
		seen[name] = key

		desc := prometheus.NewDesc(name, "APC UPS "+key, nil, nil)
		m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, v)
		if err != nil {
			logger.Debug("Skipping status key", logger.String("key", key), logger.Err(err))
			continue
		}
		ch <- m
	}
}

// MetricName maps a status key to its gauge name: lowercased, prefixed with
// the namespace, and anything outside [a-z0-9_] replaced by an underscore.
func MetricName(key string) string {
	var b strings.Builder
	b.Grow(len(namespace) + 1 + len(key))
	b.WriteString(namespace)
	b.WriteByte('_')

	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
