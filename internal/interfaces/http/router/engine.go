package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/logger"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/handler"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/middleware"
)

// Handlers groups every API handler served by the engine
type Handlers struct {
	Dashboard *handler.DashboardHandler
	Cache     *handler.CacheHandler
	Erp       *handler.ErpHandler
	Token     *handler.TokenHandler
	System    *handler.SystemHandler
}

// EngineConfig holds the middleware settings of the engine
type EngineConfig struct {
	CORS           middleware.CORSConfig
	TrustedProxies []string
	// MetricsPath serves Metrics outside the versioned API when both are set
	MetricsPath string
	Metrics     http.Handler
	// HTTPObserver receives per-route request metrics when set
	HTTPObserver middleware.HTTPObserver
	// AdminLimiter throttles the cache group when set
	AdminLimiter *middleware.RateLimiter
}

// NewEngine assembles the gin engine with middleware and all routes
func NewEngine(cfg EngineConfig, h Handlers, log *zap.Logger) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	quiet := []string{"/health", "/api/v1/health"}
	if cfg.MetricsPath != "" {
		quiet = append(quiet, cfg.MetricsPath)
	}
	engine.Use(logger.GinMiddleware(log, quiet...))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	if cfg.HTTPObserver != nil {
		engine.Use(middleware.HTTPMetrics(cfg.HTTPObserver))
	}

	engine.GET("/health", h.System.Health)
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		engine.GET(cfg.MetricsPath, gin.WrapH(cfg.Metrics))
	}

	cacheArea := NewArea("/cache").
		Handle(http.MethodGet, "/stats", h.Cache.GetStats).
		Handle(http.MethodDelete, "", h.Cache.Invalidate).
		Handle(http.MethodPost, "/warm", h.Cache.Warm)
	if cfg.AdminLimiter != nil {
		cacheArea.Guard(middleware.RateLimit(cfg.AdminLimiter))
	}

	NewAPI("v1").Add(
		NewArea("/dashboard").
			Handle(http.MethodGet, "/funnel", h.Dashboard.GetFunnel).
			Handle(http.MethodGet, "/summary", h.Dashboard.GetSummary),
		cacheArea,
		NewArea("/erp").Handle(http.MethodGet, "/:kind", h.Erp.GetTable),
		NewArea("/token").Handle(http.MethodGet, "/status", h.Token.GetStatus),
		NewArea("").Handle(http.MethodGet, "/health", h.System.Health),
	).Install(engine)

	return engine, nil
}
