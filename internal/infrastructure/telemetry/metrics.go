// Package telemetry exposes Prometheus metrics for the data-sync core.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/cache"
)

const namespace = "dashboard"

// Upstream call outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeCached  = "cached"
)

// Metrics owns a dedicated registry and the collectors of the service
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	tokenRefreshes   *prometheus.CounterVec
	degradedSources  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewMetrics creates the metric set and registers Go runtime collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream provider fetches by outcome.",
		}, []string{"provider", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream provider fetches including pagination.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"provider"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "OAuth token refresh attempts by outcome.",
		}, []string{"outcome"}),
		degradedSources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_sources_total",
			Help:      "Summaries computed with a source contributing zeros.",
		}, []string{"source"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Served HTTP requests by route template and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests,
		m.upstreamDuration,
		m.tokenRefreshes,
		m.degradedSources,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// RegisterCache exposes the counters of a cache under the given name
func (m *Metrics) RegisterCache(name string, provider cache.StatsProvider) error {
	return m.registry.Register(newCacheCollector(name, provider))
}

// ObserveUpstream records one provider fetch
func (m *Metrics) ObserveUpstream(provider, outcome string, elapsed time.Duration) {
	m.upstreamRequests.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeCached {
		m.upstreamDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// ObserveTokenRefresh records a refresh attempt
func (m *Metrics) ObserveTokenRefresh(outcome string) {
	m.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// ObserveDegradedSource records a source that contributed zeros to a summary
func (m *Metrics) ObserveDegradedSource(source string) {
	m.degradedSources.WithLabelValues(source).Inc()
}

// ObserveHTTPRequest records one served request
func (m *Metrics) ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// cacheCollector reads Stats on every scrape
type cacheCollector struct {
	provider cache.StatsProvider

	hits    *prometheus.Desc
	misses  *prometheus.Desc
	entries *prometheus.Desc
	memory  *prometheus.Desc
}

func newCacheCollector(name string, provider cache.StatsProvider) *cacheCollector {
	labels := prometheus.Labels{"cache": name}
	return &cacheCollector{
		provider: provider,
		hits: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "hits_total"),
			"Cache lookups that found a live entry.", nil, labels),
		misses: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "misses_total"),
			"Cache lookups that found nothing or an expired entry.", nil, labels),
		entries: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "entries"),
			"Entries currently stored.", nil, labels),
		memory: prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", "approx_bytes"),
			"Approximate memory held by stored entries.", nil, labels),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.entries
	ch <- c.memory
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.provider.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(stats.EntryCount))
	ch <- prometheus.MustNewConstMetric(c.memory, prometheus.GaugeValue, float64(stats.ApproxMemory))
}
