package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/cache"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/handler"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewAPI_DefaultVersion(t *testing.T) {
	assert.Equal(t, "v1", NewAPI("").version)
	assert.Equal(t, "v2", NewAPI("v2").version)
}

func TestAPI_Install(t *testing.T) {
	engine := gin.New()
	probe := NewArea("/probe").
		Handle(http.MethodGet, "/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") }).
		Handle(http.MethodPost, "/ping", func(c *gin.Context) { c.String(http.StatusCreated, "created") }).
		Handle(http.MethodDelete, "", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	root := NewAPI("v2").Add(probe).Install(engine)
	assert.Equal(t, "/api/v2", root.BasePath())

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/v2/probe/ping", http.StatusOK},
		{http.MethodPost, "/api/v2/probe/ping", http.StatusCreated},
		{http.MethodDelete, "/api/v2/probe", http.StatusNoContent},
		{http.MethodGet, "/probe/ping", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestArea(t *testing.T) {
	t.Run("lists routes", func(t *testing.T) {
		a := NewArea("/cache").
			Handle(http.MethodGet, "/stats").
			Handle(http.MethodDelete, "")
		assert.Equal(t, []string{"GET /cache/stats", "DELETE /cache"}, a.Routes())
	})

	t.Run("guard only wraps its own routes", func(t *testing.T) {
		engine := gin.New()
		ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
		guarded := NewArea("/probe").
			Guard(func(c *gin.Context) {
				c.Header("X-Guard", "probe")
				c.Next()
			}).
			Handle(http.MethodGet, "/items", ok)
		open := NewArea("/open").Handle(http.MethodGet, "/items", ok)
		NewAPI("").Add(guarded, open).Install(engine)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/probe/items", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "probe", w.Header().Get("X-Guard"))

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/open/items", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-Guard"))
	})
}

// ----------------------------------------------------------------------------
// Engine
// ----------------------------------------------------------------------------

type stubSummaries struct{}

func (stubSummaries) ComputeFunnelSummary(_ context.Context, code string) (report.FunnelSummary, error) {
	if _, err := report.ParsePeriodCode(code); err != nil {
		return report.FunnelSummary{}, err
	}
	return report.FunnelSummary{}, nil
}

func (s stubSummaries) ComputeDashboardSummary(ctx context.Context, code string) (report.DashboardSummary, error) {
	if _, err := s.ComputeFunnelSummary(ctx, code); err != nil {
		return report.DashboardSummary{}, err
	}
	return report.DashboardSummary{}, nil
}

type countingObserver struct {
	routes []string
}

func (o *countingObserver) ObserveHTTPRequest(_, route, _ string, _ time.Duration) {
	o.routes = append(o.routes, route)
}

func newTestEngine(t *testing.T, observer middleware.HTTPObserver, limiter *middleware.RateLimiter) *gin.Engine {
	t.Helper()
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = []string{"http://localhost:5173"}

	providerCache := cache.New[int](cache.WithSweepInterval[int](0))
	t.Cleanup(providerCache.Close)

	engine, err := NewEngine(EngineConfig{
		CORS:         cors,
		MetricsPath:  "/metrics",
		Metrics:      http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		HTTPObserver: observer,
		AdminLimiter: limiter,
	}, Handlers{
		Dashboard: handler.NewDashboardHandler(stubSummaries{}),
		Cache:     handler.NewCacheHandler(providerCache, nil),
		Erp:       handler.NewErpHandler(nil),
		Token:     handler.NewTokenHandler(nil),
		System: handler.NewSystemHandler("nm-dashboard", "test", map[integration.SourceCode]bool{
			integration.SourceAds: true,
		}),
	}, zap.NewNop())
	require.NoError(t, err)
	return engine
}

func TestNewEngine_Routes(t *testing.T) {
	engine := newTestEngine(t, nil, nil)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/dashboard/funnel", http.StatusOK},
		{http.MethodGet, "/api/v1/dashboard/funnel?period=7d", http.StatusOK},
		{http.MethodGet, "/api/v1/dashboard/summary?period=ytd", http.StatusOK},
		{http.MethodGet, "/api/v1/dashboard/summary?period=14d", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/cache/stats", http.StatusOK},
		{http.MethodDelete, "/api/v1/cache?pattern=vk:", http.StatusOK},
		{http.MethodPost, "/api/v1/cache/warm", http.StatusConflict},
		{http.MethodGet, "/api/v1/erp/sales", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/token/status", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestNewEngine_CORSPreflight(t *testing.T) {
	engine := newTestEngine(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard/funnel", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewEngine_HTTPMetricsUseRouteTemplate(t *testing.T) {
	observer := &countingObserver{}
	engine := newTestEngine(t, observer, nil)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/erp/stock", nil))

	require.Len(t, observer.routes, 1)
	assert.Equal(t, "/api/v1/erp/:kind", observer.routes[0])
}

func TestNewEngine_AdminRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(1)
	t.Cleanup(limiter.Close)
	engine := newTestEngine(t, nil, limiter)

	first := httptest.NewRecorder()
	engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	second := httptest.NewRecorder()
	engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	funnel := httptest.NewRecorder()
	engine.ServeHTTP(funnel, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/funnel", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, funnel.Code)
}
