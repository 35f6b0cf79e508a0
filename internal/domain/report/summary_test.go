package report

import (
	"testing"
	"time"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeKPI_EndToEnd(t *testing.T) {
	ads := SumAdFacts([]FactAdMetric{
		{CampaignID: "1", Impressions: 600, Clicks: 12, Spend: decimal.NewFromInt(1200)},
		{CampaignID: "2", Impressions: 400, Clicks: 8, Spend: decimal.NewFromInt(800)},
	})
	orders := SumOrderFacts([]FactOrder{
		{OrderID: "A", Revenue: decimal.NewFromInt(1000), Quantity: 1},
		{OrderID: "A", Revenue: decimal.NewFromInt(1000), Quantity: 1},
		{OrderID: "B", Revenue: decimal.NewFromInt(2500), Quantity: 1},
		{OrderID: "C", Revenue: decimal.NewFromInt(1500), Quantity: 2},
	})

	assert.Equal(t, int64(1000), ads.Impressions)
	assert.Equal(t, int64(20), ads.Clicks)
	assert.True(t, ads.Spend.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, int64(3), orders.Orders)
	assert.Equal(t, int64(5), orders.Items)
	assert.True(t, orders.Revenue.Equal(decimal.NewFromInt(6000)))

	kpi := ComputeKPI(ads, orders)
	assert.Equal(t, 2.0, kpi.CTR)
	assert.Equal(t, 100.0, kpi.CPC)
	assert.Equal(t, 2000.0, kpi.CPM)
	assert.Equal(t, 3.0, kpi.ROAS)
	assert.Equal(t, 2000.0, kpi.AOV)
	assert.Equal(t, 15.0, kpi.ConversionRate)
}

func TestComputeKPI_ZeroAds(t *testing.T) {
	orders := OrderTotals{Orders: 2, Revenue: decimal.NewFromInt(500)}
	kpi := ComputeKPI(AdTotals{Spend: decimal.Zero}, orders)

	assert.Equal(t, KPI{AOV: 250}, kpi)
}

func TestSumOrderFacts_SkipsCancelled(t *testing.T) {
	totals := SumOrderFacts([]FactOrder{
		{OrderID: "A", Revenue: decimal.NewFromInt(100), Quantity: 1, Status: "delivered"},
		{OrderID: "B", Revenue: decimal.NewFromInt(900), Quantity: 3, Status: "cancelled"},
	})

	assert.Equal(t, int64(1), totals.Orders)
	assert.Equal(t, int64(1), totals.Items)
	assert.True(t, totals.Revenue.Equal(decimal.NewFromInt(100)))
}

func TestSumOrderFacts_EmptyIDCountsEachFact(t *testing.T) {
	totals := SumOrderFacts([]FactOrder{
		{Revenue: decimal.NewFromInt(100), Quantity: 1},
		{Revenue: decimal.NewFromInt(200), Quantity: 1},
		{OrderID: "A", Revenue: decimal.NewFromInt(50), Quantity: 1},
		{OrderID: "A", Revenue: decimal.NewFromInt(50), Quantity: 1},
	})

	assert.Equal(t, int64(3), totals.Orders)
	assert.Equal(t, int64(4), totals.Items)
}

func TestSumErpFacts_FiltersByPeriod(t *testing.T) {
	period, err := ResolvePeriod(Period7Days, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	sales := []Fact1cSale{
		{SaleID: "S1", Date: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), Revenue: decimal.NewFromInt(1000), Cost: decimal.NewFromInt(600)},
		{SaleID: "S2", Date: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Revenue: decimal.NewFromInt(5000), Cost: decimal.NewFromInt(1000)},
		{SaleID: "S3", Revenue: decimal.NewFromInt(1000), Cost: decimal.NewFromInt(800)},
	}
	margins := []Fact1cMargin{
		{SaleID: "S1", Margin: decimal.NewFromInt(400)},
		{SaleID: "S2", Margin: decimal.NewFromInt(4000)},
		{SaleID: "S3", Margin: decimal.NewFromInt(200)},
	}

	totals := SumErpFacts(sales, margins, period)
	assert.Equal(t, int64(2), totals.Orders)
	assert.True(t, totals.Revenue.Equal(decimal.NewFromInt(2000)))
	assert.True(t, totals.Cost.Equal(decimal.NewFromInt(1400)))
	assert.True(t, totals.Margin.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, 30.0, totals.MarginPercent)
}

func TestNewFunnelSummary_FullyPopulated(t *testing.T) {
	period, err := ResolvePeriod(Period30Days, time.Now())
	require.NoError(t, err)

	s := NewFunnelSummary(period, time.Now())
	require.Len(t, s.Sources, 3)
	for _, code := range integration.AllSources() {
		assert.Equal(t, SourceStateOK, s.Sources[code].State)
	}
	assert.False(t, s.Degraded())
	assert.True(t, s.Ads.Spend.IsZero())

	s.Sources[integration.SourceAds] = SourceStatus{State: SourceStateDegraded}
	assert.True(t, s.Degraded())
}

func TestBuildDashboardSummary(t *testing.T) {
	now := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	period, err := ResolvePeriod(Period7Days, now)
	require.NoError(t, err)

	current := NewFunnelSummary(period, now)
	current.Ads = AdTotals{Impressions: 1500, Clicks: 30, Spend: decimal.NewFromInt(3000)}
	current.Orders = OrderTotals{Orders: 6, Revenue: decimal.NewFromInt(9000)}
	current.KPI = ComputeKPI(current.Ads, current.Orders)

	previous := NewFunnelSummary(period.Previous(), now)
	previous.Ads = AdTotals{Impressions: 1000, Clicks: 20, Spend: decimal.NewFromInt(2000)}
	previous.Orders = OrderTotals{Orders: 3, Revenue: decimal.NewFromInt(6000)}
	previous.KPI = ComputeKPI(previous.Ads, previous.Orders)

	d := BuildDashboardSummary(current, previous)
	assert.Equal(t, MetricDelta{Current: 1500, Previous: 1000, PercentChange: 50}, d.Impressions)
	assert.Equal(t, MetricDelta{Current: 6, Previous: 3, PercentChange: 100}, d.Orders)
	assert.Equal(t, MetricDelta{Current: 20, Previous: 15, PercentChange: 33.33}, d.ConversionRate)
	assert.Equal(t, MetricDelta{Current: 0, Previous: 0, PercentChange: 0}, d.ErpRevenue)
	assert.Equal(t, period.Previous(), d.PreviousPeriod)
}
