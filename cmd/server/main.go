package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	reportapp "github.com/rgimprovise/NM-dashboard-sub000/internal/application/report"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/advertising"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/cache"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/config"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/ecommerce"
	erpimport "github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/import"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/logger"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/scheduler"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/storage"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/telemetry"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/token"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/handler"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/middleware"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/router"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting dashboard backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", cfg.App.Timezone),
	)

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics()
	}

	providerCache := cache.NewProviderCache(cfg.Cache, log)
	defer providerCache.Close()
	if metrics != nil {
		if err := metrics.RegisterCache("provider", providerCache); err != nil {
			log.Fatal("Failed to register cache metrics", zap.Error(err))
		}
	}

	serviceOpts := []reportapp.Option{
		reportapp.WithLogger(log.Named("report")),
		reportapp.WithLocation(cfg.App.Location()),
		reportapp.WithProviderTimeout(integration.SourceAds, cfg.Ads.Timeout),
		reportapp.WithProviderTimeout(integration.SourceMarketplace, cfg.Marketplace.Timeout),
	}
	if metrics != nil {
		serviceOpts = append(serviceOpts, reportapp.WithObserver(metrics))
	}
	sources := map[integration.SourceCode]bool{}

	// Ad platform: token manager + statistics client
	var tokens *token.Manager
	if cfg.Ads.Enabled() {
		store, closeStore, err := newTokenStore(cfg)
		if err != nil {
			log.Fatal("Failed to initialize token store", zap.Error(err))
		}
		defer closeStore()

		managerOpts := []token.ManagerOption{token.WithLogger(log.Named("token"))}
		if metrics != nil {
			managerOpts = append(managerOpts, token.WithRefreshObserver(metrics))
		}
		refresher := token.NewOAuth2Refresher(cfg.Token, &http.Client{Timeout: cfg.Ads.Timeout})
		tokens = token.NewManager(store, refresher, managerOpts...)

		startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = tokens.Start(startCtx)
		if err == nil {
			err = tokens.Seed(startCtx, integration.TokenData{
				AccessToken:  cfg.Token.AccessToken,
				RefreshToken: cfg.Token.RefreshToken,
				ExpiresAt:    cfg.Token.ExpiresAt,
			})
		}
		cancel()
		if err != nil {
			log.Fatal("Failed to load ad platform token", zap.Error(err))
		}

		adsClient, err := advertising.NewClient(cfg.Ads, tokens, advertising.WithLogger(log.Named("vk")))
		if err != nil {
			log.Fatal("Failed to create ad platform client", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, reportapp.WithAdStatsSource(adsClient))
		sources[integration.SourceAds] = true
	} else {
		log.Warn("Ad platform not configured, set ads.base_url to enable it")
		sources[integration.SourceAds] = false
	}

	// Marketplace orders
	if cfg.Marketplace.Enabled() {
		mpClient, err := ecommerce.NewMarketplaceClient(cfg.Marketplace, ecommerce.WithLogger(log.Named("marketplace")))
		if err != nil {
			log.Fatal("Failed to create marketplace client", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, reportapp.WithOrderSource(mpClient))
		sources[integration.SourceMarketplace] = true
	} else {
		log.Warn("Marketplace not configured, set marketplace.base_url and marketplace.api_key to enable it")
		sources[integration.SourceMarketplace] = false
	}

	// ERP exports
	objects, err := newObjectReader(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize ERP storage", zap.Error(err))
	}
	loader := erpimport.NewLoader(objects,
		erpimport.WithHeaderRow(cfg.Erp.HeaderRow),
		erpimport.WithLogger(log.Named("erp")),
	)
	serviceOpts = append(serviceOpts, reportapp.WithErpLoader(loader))
	sources[integration.SourceErp] = true

	if cfg.Erp.Watch && cfg.Erp.Source == "local" {
		watcher := erpimport.NewWatcher(cfg.Erp.UploadDir, loader, log.Named("erp-watcher"))
		if err := watcher.Start(); err != nil {
			log.Warn("ERP upload watcher disabled", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	summaries := reportapp.NewService(providerCache, serviceOpts...)

	// Cache warmer
	var warmer *scheduler.CacheWarmer
	if cfg.Scheduler.Enabled {
		var tokenProvider integration.TokenProvider
		if tokens != nil {
			tokenProvider = tokens
		}
		warmer, err = scheduler.NewCacheWarmer(scheduler.WarmerConfig{
			Enabled:    true,
			Interval:   cfg.Scheduler.Interval,
			JobTimeout: cfg.Scheduler.JobTimeout,
			RunOnStart: true,
		}, summaries, tokenProvider, log.Named("warmer"))
		if err != nil {
			log.Fatal("Failed to create cache warmer", zap.Error(err))
		}
		if err := warmer.Start(context.Background()); err != nil {
			log.Fatal("Failed to start cache warmer", zap.Error(err))
		}
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers := router.Handlers{
		Dashboard: handler.NewDashboardHandler(summaries),
		Cache:     handler.NewCacheHandler(providerCache, nil),
		Erp:       handler.NewErpHandler(loader),
		Token:     handler.NewTokenHandler(nil),
		System:    handler.NewSystemHandler(cfg.App.Name, version, sources),
	}
	if warmer != nil {
		handlers.Cache = handler.NewCacheHandler(providerCache, warmer)
	}
	if tokens != nil {
		handlers.Token = handler.NewTokenHandler(tokens)
	}

	adminLimiter := middleware.NewRateLimiter(cfg.HTTP.AdminRequestsPerMinute)
	defer adminLimiter.Close()

	engineCfg := router.EngineConfig{
		CORS: middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		},
		TrustedProxies: cfg.HTTP.TrustedProxies,
		AdminLimiter:   adminLimiter,
	}
	if metrics != nil {
		engineCfg.MetricsPath = cfg.Metrics.Path
		engineCfg.Metrics = metrics.Handler()
		engineCfg.HTTPObserver = metrics
	}

	engine, err := router.NewEngine(engineCfg, handlers, log)
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if warmer != nil {
		if err := warmer.Stop(ctx); err != nil {
			log.Error("Cache warmer did not stop cleanly", zap.Error(err))
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// newTokenStore selects the credential backend. The returned func releases it.
func newTokenStore(cfg *config.Config) (integration.TokenStore, func(), error) {
	if cfg.Token.Store != "redis" {
		return token.NewFileStore(cfg.Token.FilePath), func() {}, nil
	}

	client, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	store := token.NewRedisStore(client, cfg.Token.RedisKey)
	return store, func() { _ = store.Close() }, nil
}

// newObjectReader selects where ERP exports are read from
func newObjectReader(cfg *config.Config, log *zap.Logger) (storage.ObjectReader, error) {
	if cfg.Erp.Source == "s3" {
		return storage.NewS3Bucket(cfg.Storage, storage.WithLogger(log.Named("s3")))
	}
	if err := os.MkdirAll(cfg.Erp.UploadDir, 0o755); err != nil {
		return nil, err
	}
	return storage.NewLocalObjectStorage(cfg.Erp.UploadDir), nil
}
