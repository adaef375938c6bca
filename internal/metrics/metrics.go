package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "storefront"

// Sync run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector is a prometheus.Collector for product sync runs and HTTP traffic.
type Collector struct {
	syncRuns         *prometheus.CounterVec
	productsUpserted prometheus.Counter
	syncDuration     prometheus.Histogram
	httpRequests     *prometheus.CounterVec
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		syncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "The number of product sync runs by outcome.",
			}, []string{"outcome"},
		),
		productsUpserted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_products_upserted_total",
				Help:      "The number of products created or updated by sync.",
			},
		),
		syncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "The time taken by a product sync run.",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "The number of HTTP requests served, by method and status.",
			}, []string{"method", "status"},
		),
	}
}

// ObserveSync records one finished sync run.
func (c *Collector) ObserveSync(upserted int, took time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	c.syncRuns.WithLabelValues(outcome).Inc()
	c.productsUpserted.Add(float64(upserted))
	c.syncDuration.Observe(took.Seconds())
}

// ObserveRequest records one served HTTP request.
func (c *Collector) ObserveRequest(method string, status int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.syncRuns.Describe(ch)
	c.productsUpserted.Describe(ch)
	c.syncDuration.Describe(ch)
	c.httpRequests.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.syncRuns.Collect(ch)
	c.productsUpserted.Collect(ch)
	c.syncDuration.Collect(ch)
	c.httpRequests.Collect(ch)
}

// NewRegistry returns a registry holding c plus the Go runtime and process
// collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}
