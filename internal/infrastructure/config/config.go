package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata" // zoneinfo for app.timezone

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	HTTP        HTTPConfig
	Log         LogConfig
	Redis       RedisConfig
	Cache       CacheConfig
	Token       TokenConfig
	Ads         AdsConfig
	Marketplace MarketplaceConfig
	Erp         ErpConfig
	Storage     StorageConfig
	Scheduler   SchedulerConfig
	Metrics     MetricsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Port     string
	Timezone string // IANA name used to cut reporting periods into days
}

// Location resolves Timezone, falling back to UTC
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// AdminRequestsPerMinute throttles the /cache endpoints per client IP
	AdminRequestsPerMinute int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	MaxSizeMB  int    // rotate file output after this size
	MaxBackups int
	MaxAgeDays int
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds provider cache settings
type CacheConfig struct {
	SweepInterval time.Duration
}

// TokenConfig holds the ad platform OAuth credential settings
type TokenConfig struct {
	Store        string // file or redis
	FilePath     string
	RedisKey     string
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Seed credential used when the store is empty
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AdsConfig holds the ad platform client settings
type AdsConfig struct {
	BaseURL           string
	PageSize          int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Enabled returns true when the ad platform endpoint is configured
func (a AdsConfig) Enabled() bool {
	return a.BaseURL != ""
}

// MarketplaceConfig holds the marketplace order API settings
type MarketplaceConfig struct {
	BaseURL           string
	ClientID          string
	APIKey            string
	PageSize          int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Enabled returns true when the marketplace endpoint and credentials are configured
func (m MarketplaceConfig) Enabled() bool {
	return m.BaseURL != "" && m.APIKey != ""
}

// ErpConfig holds ERP export loading settings
type ErpConfig struct {
	Source    string // local or s3
	UploadDir string
	HeaderRow int // 1-based
	Watch     bool
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Prefix       string
	UseSSL       bool
	UsePathStyle bool
}

// SchedulerConfig holds cache warmer settings
type SchedulerConfig struct {
	Enabled    bool
	Interval   time.Duration
	JobTimeout time.Duration
}

// MetricsConfig holds Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DASH_ prefix (e.g., DASH_TOKEN_CLIENT_SECRET)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("metrics.enabled", true)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("DASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			Timezone: v.GetString("app.timezone"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),

			AdminRequestsPerMinute: v.GetInt("http.admin_requests_per_minute"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cache: CacheConfig{
			SweepInterval: v.GetDuration("cache.sweep_interval"),
		},
		Token: TokenConfig{
			Store:        v.GetString("token.store"),
			FilePath:     v.GetString("token.file_path"),
			RedisKey:     v.GetString("token.redis_key"),
			TokenURL:     v.GetString("token.token_url"),
			ClientID:     v.GetString("token.client_id"),
			ClientSecret: v.GetString("token.client_secret"),
			AccessToken:  v.GetString("token.access_token"),
			RefreshToken: v.GetString("token.refresh_token"),
			ExpiresAt:    v.GetTime("token.expires_at"),
		},
		Ads: AdsConfig{
			BaseURL:           v.GetString("ads.base_url"),
			PageSize:          v.GetInt("ads.page_size"),
			RequestsPerSecond: v.GetFloat64("ads.requests_per_second"),
			Timeout:           v.GetDuration("ads.timeout"),
		},
		Marketplace: MarketplaceConfig{
			BaseURL:           v.GetString("marketplace.base_url"),
			ClientID:          v.GetString("marketplace.client_id"),
			APIKey:            v.GetString("marketplace.api_key"),
			PageSize:          v.GetInt("marketplace.page_size"),
			RequestsPerSecond: v.GetFloat64("marketplace.requests_per_second"),
			Timeout:           v.GetDuration("marketplace.timeout"),
		},
		Erp: ErpConfig{
			Source:    v.GetString("erp.source"),
			UploadDir: v.GetString("erp.upload_dir"),
			HeaderRow: v.GetInt("erp.header_row"),
			Watch:     v.GetBool("erp.watch"),
		},
		Storage: StorageConfig{
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			Prefix:       v.GetString("storage.prefix"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Scheduler: SchedulerConfig{
			Enabled:    v.GetBool("scheduler.enabled"),
			Interval:   v.GetDuration("scheduler.interval"),
			JobTimeout: v.GetDuration("scheduler.job_timeout"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "nm-dashboard"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "Europe/Moscow"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// summaries wait on upstream calls
		cfg.HTTP.WriteTimeout = 90 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.AdminRequestsPerMinute == 0 {
		cfg.HTTP.AdminRequestsPerMinute = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Cache.SweepInterval == 0 {
		cfg.Cache.SweepInterval = 5 * time.Minute
	}
	if cfg.Token.Store == "" {
		cfg.Token.Store = "file"
	}
	if cfg.Token.FilePath == "" {
		cfg.Token.FilePath = "data/vk_token.json"
	}
	if cfg.Token.RedisKey == "" {
		cfg.Token.RedisKey = "dashboard:vk:token"
	}
	if cfg.Token.TokenURL == "" {
		cfg.Token.TokenURL = "https://ads.vk.com/api/v2/oauth2/token.json"
	}
	if cfg.Ads.PageSize == 0 {
		cfg.Ads.PageSize = 250
	}
	if cfg.Ads.RequestsPerSecond == 0 {
		cfg.Ads.RequestsPerSecond = 2
	}
	if cfg.Ads.Timeout == 0 {
		cfg.Ads.Timeout = 30 * time.Second
	}
	if cfg.Marketplace.PageSize == 0 {
		cfg.Marketplace.PageSize = 100
	}
	if cfg.Marketplace.RequestsPerSecond == 0 {
		cfg.Marketplace.RequestsPerSecond = 1
	}
	if cfg.Marketplace.Timeout == 0 {
		cfg.Marketplace.Timeout = 30 * time.Second
	}
	if cfg.Erp.Source == "" {
		cfg.Erp.Source = "local"
	}
	if cfg.Erp.UploadDir == "" {
		cfg.Erp.UploadDir = "data/uploads"
	}
	if cfg.Erp.HeaderRow == 0 {
		cfg.Erp.HeaderRow = 1
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "erp/"
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = 10 * time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 2 * time.Minute
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Token.Store {
	case "file", "redis":
	default:
		return fmt.Errorf("token.store must be 'file' or 'redis', got %q", c.Token.Store)
	}

	switch c.Erp.Source {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when erp.source is 's3'")
		}
	default:
		return fmt.Errorf("erp.source must be 'local' or 's3', got %q", c.Erp.Source)
	}

	if c.Erp.HeaderRow < 1 {
		return fmt.Errorf("erp.header_row must be >= 1, got %d", c.Erp.HeaderRow)
	}
	if c.Ads.RequestsPerSecond < 0 || c.Marketplace.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second cannot be negative")
	}
	if c.Ads.PageSize < 0 || c.Marketplace.PageSize < 0 {
		return fmt.Errorf("page_size cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Ads.Enabled() && c.Token.ClientSecret == "" {
			return fmt.Errorf("token.client_secret is required in production when ads.base_url is set")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}
