package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus instruments for the cache statistics
// service. Each collector owns its registry so tests can create
// independent instances.
type Collector struct {
	registry *prometheus.Registry

	scansTotal     *prometheus.CounterVec
	scanDuration   prometheus.Histogram
	keysClassified *prometheus.CounterVec
	evictionsTotal *prometheus.CounterVec
}

// NewCollector creates a collector with all instruments registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cachestats_scans_total",
			Help: "Completed statistics scans by data source.",
		}, []string{"source"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cachestats_scan_duration_seconds",
			Help:    "Wall time of a full list-fetch-classify pass.",
			Buckets: prometheus.DefBuckets,
		}),
		keysClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cachestats_keys_classified_total",
			Help: "Cache keys counted per category across all scans.",
		}, []string{"category"}),
		evictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cachestats_evictions_total",
			Help: "Eviction calls by category and outcome.",
		}, []string{"category", "result"}),
	}

	c.registry.MustRegister(
		c.scansTotal,
		c.scanDuration,
		c.keysClassified,
		c.evictionsTotal,
	)
	return c
}

// RecordScan records a completed statistics scan.
func (c *Collector) RecordScan(source string, duration time.Duration) {
	c.scansTotal.WithLabelValues(source).Inc()
	c.scanDuration.Observe(duration.Seconds())
}

// RecordKeys adds classified key counts for a category.
func (c *Collector) RecordKeys(category string, n int) {
	if n > 0 {
		c.keysClassified.WithLabelValues(category).Add(float64(n))
	}
}

// RecordEviction records an eviction call and whether the delete
// primitive executed.
func (c *Collector) RecordEviction(category string, executed bool) {
	result := "executed"
	if !executed {
		result = "failed"
	}
	c.evictionsTotal.WithLabelValues(category, result).Inc()
}

// Handler returns an http.Handler serving the Prometheus exposition
// format for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
