package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/application/normalize"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/cache"
	erpimport "github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/import"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/logger"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/telemetry"
)

// Lifetimes of cached raw provider payloads
const (
	AdStatsTTL = 15 * time.Minute
	OrdersTTL  = 10 * time.Minute
)

const defaultProviderTimeout = 30 * time.Second

// ErpSalesLoader returns the rows of the latest ERP export of a kind
type ErpSalesLoader interface {
	Load(ctx context.Context, kind erpimport.Kind, forceReload bool) ([]erpimport.Row, error)
}

// UpstreamObserver receives fetch outcomes, typically a telemetry.Metrics
type UpstreamObserver interface {
	ObserveUpstream(provider, outcome string, elapsed time.Duration)
	ObserveDegradedSource(source string)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(string, string, time.Duration) {}
func (nopObserver) ObserveDegradedSource(string) {}

// Service computes funnel and dashboard summaries across all sources.
// A source that fails contributes zeros and is flagged in the summary;
// its error is logged and never returned to the caller.
type Service struct {
	ads    integration.AdStatsSource
	orders integration.OrderSource
	erp    ErpSalesLoader

	cache    *cache.ProviderCache
	flight   singleflight.Group
	observer UpstreamObserver
	timeouts map[integration.SourceCode]time.Duration

	logger *zap.Logger
	now    func() time.Time
	loc    *time.Location
}

// Option is a functional option for configuring a Service
type Option func(*Service)

// WithAdStatsSource sets the ad platform client
func WithAdStatsSource(src integration.AdStatsSource) Option {
	return func(s *Service) {
		s.ads = src
	}
}

// WithOrderSource sets the marketplace client
func WithOrderSource(src integration.OrderSource) Option {
	return func(s *Service) {
		s.orders = src
	}
}

// WithErpLoader sets the loader for uploaded ERP exports
func WithErpLoader(loader ErpSalesLoader) Option {
	return func(s *Service) {
		s.erp = loader
	}
}

// WithObserver sets the receiver of fetch outcomes
func WithObserver(observer UpstreamObserver) Option {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithProviderTimeout bounds every fetch from one source
func WithProviderTimeout(code integration.SourceCode, d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeouts[code] = d
		}
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to resolve periods
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the timezone in which periods are resolved
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewService creates a Service. Sources left unset are reported as unconfigured.
// providerCache may be nil, in which case every call fetches upstream.
func NewService(providerCache *cache.ProviderCache, opts ...Option) *Service {
	s := &Service{
		cache:    providerCache,
		observer: nopObserver{},
		timeouts: make(map[integration.SourceCode]time.Duration),
		logger:   zap.NewNop(),
		now:      time.Now,
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Summaries
// ---------------------------------------------------------------------------

// ResolvePeriod validates a raw period code and maps it to today's range
func (s *Service) ResolvePeriod(raw string) (report.PeriodRange, error) {
	code, err := report.ParsePeriodCode(raw)
	if err != nil {
		return report.PeriodRange{}, err
	}
	return report.ResolvePeriod(code, s.now().In(s.loc))
}

// ComputeFunnelSummary aggregates all sources over the period named by code.
// Only an invalid period code or a cancelled context produce an error.
func (s *Service) ComputeFunnelSummary(ctx context.Context, code string) (report.FunnelSummary, error) {
	period, err := s.ResolvePeriod(code)
	if err != nil {
		return report.FunnelSummary{}, err
	}
	return s.computeFunnel(ctx, period)
}

// ComputeDashboardSummary compares the period named by code with the
// immediately preceding period of equal length
func (s *Service) ComputeDashboardSummary(ctx context.Context, code string) (report.DashboardSummary, error) {
	current, err := s.ResolvePeriod(code)
	if err != nil {
		return report.DashboardSummary{}, err
	}

	var cur, prev report.FunnelSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = s.computeFunnel(gctx, current)
		return err
	})
	g.Go(func() error {
		var err error
		prev, err = s.computeFunnel(gctx, current.Previous())
		return err
	})
	if err := g.Wait(); err != nil {
		return report.DashboardSummary{}, err
	}

	return report.BuildDashboardSummary(cur, prev), nil
}

func (s *Service) computeFunnel(ctx context.Context, period report.PeriodRange) (report.FunnelSummary, error) {
	summary := report.NewFunnelSummary(period, s.now())
	log := logger.FromContext(ctx, s.logger).With(
		zap.String("period", string(period.Code)),
		zap.String("range", period.Key()),
	)

	var (
		adFacts    []report.FactAdMetric
		orderFacts []report.FactOrder
		erpSales   []report.Fact1cSale
		erpMargins []report.Fact1cMargin
		adErr      error
		orderErr   error
		erpErr     error
	)

	// each goroutine owns its result variables; failures are folded in after Wait
	var g errgroup.Group
	g.Go(func() error {
		adFacts, adErr = s.fetchAds(ctx, period)
		return nil
	})
	g.Go(func() error {
		orderFacts, orderErr = s.fetchOrders(ctx, period)
		return nil
	})
	g.Go(func() error {
		erpSales, erpMargins, erpErr = s.fetchErp(ctx)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report.FunnelSummary{}, err
	}

	if adErr != nil {
		s.degrade(log, &summary, integration.SourceAds, adErr)
	} else {
		summary.Ads = report.SumAdFacts(adFacts)
		summary.Sources[integration.SourceAds] = report.SourceStatus{State: report.SourceStateOK, Records: len(adFacts)}
	}

	if orderErr != nil {
		s.degrade(log, &summary, integration.SourceMarketplace, orderErr)
	} else {
		summary.Orders = report.SumOrderFacts(orderFacts)
		summary.Sources[integration.SourceMarketplace] = report.SourceStatus{State: report.SourceStateOK, Records: len(orderFacts)}
	}

	if erpErr != nil {
		s.degrade(log, &summary, integration.SourceErp, erpErr)
	} else {
		summary.Erp = report.SumErpFacts(erpSales, erpMargins, period)
		summary.Sources[integration.SourceErp] = report.SourceStatus{State: report.SourceStateOK, Records: len(erpSales)}
	}

	summary.KPI = report.ComputeKPI(summary.Ads, summary.Orders)

	log.Debug("Funnel summary computed",
		zap.Int64("impressions", summary.Ads.Impressions),
		zap.Int64("orders", summary.Orders.Orders),
		zap.Int64("erp_orders", summary.Erp.Orders),
		zap.Bool("degraded", summary.Degraded()),
	)
	return summary, nil
}

func (s *Service) degrade(log *zap.Logger, summary *report.FunnelSummary, code integration.SourceCode, err error) {
	if errors.Is(err, integration.ErrSourceNotConfigured) {
		summary.Sources[code] = report.SourceStatus{State: report.SourceStateUnconfigured, Error: err.Error()}
		log.Debug("Source not configured", zap.String("source", string(code)))
		return
	}

	summary.Sources[code] = report.SourceStatus{State: report.SourceStateDegraded, Error: err.Error()}
	s.observer.ObserveDegradedSource(string(code))
	log.Warn("Source degraded, contributing zeros",
		zap.String("source", string(code)),
		zap.Error(err),
	)
}

// ---------------------------------------------------------------------------
// Source fetches
// ---------------------------------------------------------------------------

func (s *Service) fetchAds(ctx context.Context, period report.PeriodRange) ([]report.FactAdMetric, error) {
	if s.ads == nil {
		return nil, integration.ErrSourceNotConfigured
	}
	key := cache.Key(integration.SourceAds.CachePrefix(), "stats", "day", period.Key())
	raw, err := s.cachedFetch(ctx, integration.SourceAds, key, AdStatsTTL, func(ctx context.Context) ([]json.RawMessage, error) {
		return s.ads.FetchDailyStats(ctx, period.DateFrom, period.DateTo)
	})
	if err != nil {
		return nil, err
	}
	return normalize.NormalizeAdMetrics(raw), nil
}

func (s *Service) fetchOrders(ctx context.Context, period report.PeriodRange) ([]report.FactOrder, error) {
	if s.orders == nil {
		return nil, integration.ErrSourceNotConfigured
	}
	key := cache.Key(integration.SourceMarketplace.CachePrefix(), "orders", period.Key())
	raw, err := s.cachedFetch(ctx, integration.SourceMarketplace, key, OrdersTTL, func(ctx context.Context) ([]json.RawMessage, error) {
		return s.orders.FetchOrders(ctx, period.DateFrom, period.DateTo)
	})
	if err != nil {
		return nil, err
	}
	return normalize.NormalizeOrders(raw), nil
}

// fetchErp normalizes the whole sales export; period filtering happens in SumErpFacts
func (s *Service) fetchErp(ctx context.Context) ([]report.Fact1cSale, []report.Fact1cMargin, error) {
	if s.erp == nil {
		return nil, nil, integration.ErrSourceNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout(integration.SourceErp))
	defer cancel()

	start := time.Now()
	rows, err := s.erp.Load(ctx, erpimport.KindSales, false)
	if err != nil {
		s.observer.ObserveUpstream(string(integration.SourceErp), telemetry.OutcomeFailure, time.Since(start))
		return nil, nil, fmt.Errorf("load %s export: %w", erpimport.KindSales, err)
	}
	s.observer.ObserveUpstream(string(integration.SourceErp), telemetry.OutcomeSuccess, time.Since(start))

	sales, margins := normalize.NormalizeErpSales(rows, s.loc)
	return sales, margins, nil
}

// cachedFetch serves key from the provider cache or runs fetch once for all
// concurrent callers and stores a successful result for ttl
func (s *Service) cachedFetch(
	ctx context.Context,
	code integration.SourceCode,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context) ([]json.RawMessage, error),
) ([]json.RawMessage, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			s.observer.ObserveUpstream(string(code), telemetry.OutcomeCached, 0)
			return raw, nil
		}
	}

	ch := s.flight.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout(code))
		defer cancel()

		start := time.Now()
		raw, err := fetch(fetchCtx)
		elapsed := time.Since(start)
		if err != nil {
			s.observer.ObserveUpstream(string(code), telemetry.OutcomeFailure, elapsed)
			return nil, err
		}
		s.observer.ObserveUpstream(string(code), telemetry.OutcomeSuccess, elapsed)

		if s.cache != nil {
			s.cache.Set(key, raw, ttl)
		}
		s.logger.Debug("Provider payload fetched",
			zap.String("source", string(code)),
			zap.String("key", key),
			zap.Int("records", len(raw)),
			zap.Duration("elapsed", elapsed),
		)
		return raw, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]json.RawMessage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) timeout(code integration.SourceCode) time.Duration {
	if d, ok := s.timeouts[code]; ok {
		return d
	}
	return defaultProviderTimeout
}
