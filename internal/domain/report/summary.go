package report

import (
	"time"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// SourceState describes how a source contributed to a summary
type SourceState string

const (
	SourceStateOK           SourceState = "ok"
	SourceStateDegraded     SourceState = "degraded"
	SourceStateUnconfigured SourceState = "unconfigured"
)

// SourceStatus is the per-source health flag attached to every summary
type SourceStatus struct {
	State   SourceState `json:"state"`
	Error   string      `json:"error,omitempty"`
	Records int         `json:"records"`
}

// AdTotals sums ad platform facts
type AdTotals struct {
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	Spend       decimal.Decimal `json:"spend"`
}

// OrderTotals sums non-cancelled marketplace order facts
type OrderTotals struct {
	Orders  int64           `json:"orders"`
	Items   int64           `json:"items"`
	Revenue decimal.Decimal `json:"revenue"`
}

// ErpTotals sums ERP sale and margin facts
type ErpTotals struct {
	Orders        int64           `json:"orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	Cost          decimal.Decimal `json:"cost"`
	Margin        decimal.Decimal `json:"margin"`
	MarginPercent float64         `json:"margin_percent"`
}

// KPI is the derived funnel metric set
type KPI struct {
	CTR            float64 `json:"ctr"`
	CPC            float64 `json:"cpc"`
	CPM            float64 `json:"cpm"`
	ROAS           float64 `json:"roas"`
	ConversionRate float64 `json:"conversion_rate"`
	AOV            float64 `json:"aov"`
}

// FunnelSummary is the period-bounded view over all sources.
// It is always fully populated; failed sources contribute zeros.
type FunnelSummary struct {
	Period      PeriodRange                             `json:"period"`
	Ads         AdTotals                                `json:"vk"`
	Orders      OrderTotals                             `json:"marketplace"`
	Erp         ErpTotals                               `json:"erp"`
	KPI         KPI                                     `json:"kpi"`
	Sources     map[integration.SourceCode]SourceStatus `json:"sources"`
	GeneratedAt time.Time                               `json:"generated_at"`
}

// NewFunnelSummary returns a zero-valued summary with every source marked ok
func NewFunnelSummary(period PeriodRange, now time.Time) FunnelSummary {
	sources := make(map[integration.SourceCode]SourceStatus, 3)
	for _, code := range integration.AllSources() {
		sources[code] = SourceStatus{State: SourceStateOK}
	}
	return FunnelSummary{
		Period: period,
		Ads: AdTotals{
			Spend: decimal.Zero,
		},
		Orders: OrderTotals{
			Revenue: decimal.Zero,
		},
		Erp: ErpTotals{
			Revenue: decimal.Zero,
			Cost:    decimal.Zero,
			Margin:  decimal.Zero,
		},
		Sources:     sources,
		GeneratedAt: now,
	}
}

// Degraded returns true if any source failed to contribute
func (s FunnelSummary) Degraded() bool {
	for _, st := range s.Sources {
		if st.State != SourceStateOK {
			return true
		}
	}
	return false
}

// SumAdFacts folds ad facts into totals
func SumAdFacts(facts []FactAdMetric) AdTotals {
	totals := AdTotals{Spend: decimal.Zero}
	for _, f := range facts {
		totals.Impressions += f.Impressions
		totals.Clicks += f.Clicks
		totals.Spend = totals.Spend.Add(f.Spend)
	}
	return totals
}

// SumOrderFacts folds order facts into totals, counting each order once
func SumOrderFacts(facts []FactOrder) OrderTotals {
	totals := OrderTotals{Revenue: decimal.Zero}
	seen := make(map[string]struct{}, len(facts))
	for _, f := range facts {
		if f.IsCancelled() {
			continue
		}
		if f.OrderID == "" {
			totals.Orders++
		} else if _, ok := seen[f.OrderID]; !ok {
			seen[f.OrderID] = struct{}{}
			totals.Orders++
		}
		totals.Items += f.Quantity
		totals.Revenue = totals.Revenue.Add(f.Revenue)
	}
	return totals
}

// SumErpFacts folds ERP facts that fall inside period into totals.
// Sales without a date are always included.
func SumErpFacts(sales []Fact1cSale, margins []Fact1cMargin, period PeriodRange) ErpTotals {
	totals := ErpTotals{
		Revenue: decimal.Zero,
		Cost:    decimal.Zero,
		Margin:  decimal.Zero,
	}

	included := make(map[string]struct{}, len(sales))
	for _, s := range sales {
		if s.HasDate() && !period.Contains(s.Date) {
			continue
		}
		if _, ok := included[s.SaleID]; !ok {
			included[s.SaleID] = struct{}{}
			totals.Orders++
		}
		totals.Revenue = totals.Revenue.Add(s.Revenue)
		totals.Cost = totals.Cost.Add(s.Cost)
	}
	for _, m := range margins {
		if _, ok := included[m.SaleID]; ok {
			totals.Margin = totals.Margin.Add(m.Margin)
		}
	}

	totals.MarginPercent = Round2(RevenueShare(totals.Margin.InexactFloat64(), totals.Revenue.InexactFloat64()))
	return totals
}

// ComputeKPI derives the funnel KPI set from ad and order totals
func ComputeKPI(ads AdTotals, orders OrderTotals) KPI {
	impressions := float64(ads.Impressions)
	clicks := float64(ads.Clicks)
	spend := ads.Spend.InexactFloat64()
	revenue := orders.Revenue.InexactFloat64()
	count := float64(orders.Orders)

	return KPI{
		CTR:            Round2(CTR(impressions, clicks)),
		CPC:            Round2(CPC(spend, clicks)),
		CPM:            Round2(CPM(spend, impressions)),
		ROAS:           Round2(ROAS(revenue, spend)),
		ConversionRate: Round2(ConversionRate(count, clicks)),
		AOV:            Round2(AOV(revenue, count)),
	}
}

// MetricDelta compares one metric across two periods
type MetricDelta struct {
	Current       float64 `json:"current"`
	Previous      float64 `json:"previous"`
	PercentChange float64 `json:"percent_change"`
}

// NewMetricDelta builds a delta rounded to two decimals
func NewMetricDelta(current, previous float64) MetricDelta {
	return MetricDelta{
		Current:       Round2(current),
		Previous:      Round2(previous),
		PercentChange: Round2(PercentChange(current, previous)),
	}
}

// DashboardSummary compares the current period with the preceding one
type DashboardSummary struct {
	Period          PeriodRange                             `json:"period"`
	PreviousPeriod  PeriodRange                             `json:"previous_period"`
	Impressions     MetricDelta                             `json:"impressions"`
	Clicks          MetricDelta                             `json:"clicks"`
	Spend           MetricDelta                             `json:"spend"`
	Orders          MetricDelta                             `json:"orders"`
	Revenue         MetricDelta                             `json:"revenue"`
	ErpOrders       MetricDelta                             `json:"erp_orders"`
	ErpRevenue      MetricDelta                             `json:"erp_revenue"`
	ErpMargin       MetricDelta                             `json:"erp_margin"`
	CTR             MetricDelta                             `json:"ctr"`
	CPC             MetricDelta                             `json:"cpc"`
	CPM             MetricDelta                             `json:"cpm"`
	ROAS            MetricDelta                             `json:"roas"`
	ConversionRate  MetricDelta                             `json:"conversion_rate"`
	AOV             MetricDelta                             `json:"aov"`
	Sources         map[integration.SourceCode]SourceStatus `json:"sources"`
	PreviousSources map[integration.SourceCode]SourceStatus `json:"previous_sources"`
	GeneratedAt     time.Time                               `json:"generated_at"`
}

// BuildDashboardSummary pairs two funnel summaries metric by metric
func BuildDashboardSummary(current, previous FunnelSummary) DashboardSummary {
	return DashboardSummary{
		Period:          current.Period,
		PreviousPeriod:  previous.Period,
		Impressions:     NewMetricDelta(float64(current.Ads.Impressions), float64(previous.Ads.Impressions)),
		Clicks:          NewMetricDelta(float64(current.Ads.Clicks), float64(previous.Ads.Clicks)),
		Spend:           NewMetricDelta(current.Ads.Spend.InexactFloat64(), previous.Ads.Spend.InexactFloat64()),
		Orders:          NewMetricDelta(float64(current.Orders.Orders), float64(previous.Orders.Orders)),
		Revenue:         NewMetricDelta(current.Orders.Revenue.InexactFloat64(), previous.Orders.Revenue.InexactFloat64()),
		ErpOrders:       NewMetricDelta(float64(current.Erp.Orders), float64(previous.Erp.Orders)),
		ErpRevenue:      NewMetricDelta(current.Erp.Revenue.InexactFloat64(), previous.Erp.Revenue.InexactFloat64()),
		ErpMargin:       NewMetricDelta(current.Erp.Margin.InexactFloat64(), previous.Erp.Margin.InexactFloat64()),
		CTR:             NewMetricDelta(current.KPI.CTR, previous.KPI.CTR),
		CPC:             NewMetricDelta(current.KPI.CPC, previous.KPI.CPC),
		CPM:             NewMetricDelta(current.KPI.CPM, previous.KPI.CPM),
		ROAS:            NewMetricDelta(current.KPI.ROAS, previous.KPI.ROAS),
		ConversionRate:  NewMetricDelta(current.KPI.ConversionRate, previous.KPI.ConversionRate),
		AOV:             NewMetricDelta(current.KPI.AOV, previous.KPI.AOV),
		Sources:         current.Sources,
		PreviousSources: previous.Sources,
		GeneratedAt:     current.GeneratedAt,
	}
}
