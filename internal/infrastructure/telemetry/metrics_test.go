package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStats struct {
	stats cache.Stats
}

func (s staticStats) Stats() cache.Stats {
	return s.stats
}

func TestMetrics_Upstream(t *testing.T) {
	m := NewMetrics()

	m.ObserveUpstream("vk", OutcomeSuccess, 120*time.Millisecond)
	m.ObserveUpstream("vk", OutcomeFailure, time.Second)
	m.ObserveUpstream("vk", OutcomeCached, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("vk", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("vk", OutcomeCached)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.upstreamDuration))
}

func TestMetrics_TokenAndDegraded(t *testing.T) {
	m := NewMetrics()

	m.ObserveTokenRefresh("success")
	m.ObserveTokenRefresh("failure")
	m.ObserveTokenRefresh("failure")
	m.ObserveDegradedSource("marketplace")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tokenRefreshes.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degradedSources.WithLabelValues("marketplace")))
}

func TestMetrics_HTTPRequests(t *testing.T) {
	m := NewMetrics()

	m.ObserveHTTPRequest("GET", "/api/v1/dashboard/funnel", "200", 30*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/dashboard/funnel", "400", time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/dashboard/funnel", "200", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/dashboard/funnel", "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.httpRequests))
}

func TestMetrics_CacheCollector(t *testing.T) {
	m := NewMetrics()
	require.NoError(t, m.RegisterCache("provider", staticStats{cache.Stats{
		Hits: 7, Misses: 3, EntryCount: 2, ApproxMemory: 512,
	}}))

	expected := `
# HELP dashboard_cache_entries Entries currently stored.
# TYPE dashboard_cache_entries gauge
dashboard_cache_entries{cache="provider"} 2
# HELP dashboard_cache_hits_total Cache lookups that found a live entry.
# TYPE dashboard_cache_hits_total counter
dashboard_cache_hits_total{cache="provider"} 7
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"dashboard_cache_entries", "dashboard_cache_hits_total")
	require.NoError(t, err)

	// registering the same cache name twice is rejected
	assert.Error(t, m.RegisterCache("provider", staticStats{}))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveTokenRefresh("success")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `dashboard_token_refreshes_total{outcome="success"} 1`)
}
