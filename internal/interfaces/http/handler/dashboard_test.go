package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/dto"
)

type fakeSummaries struct {
	lastCode string
	err      error
}

func (f *fakeSummaries) ComputeFunnelSummary(_ context.Context, code string) (report.FunnelSummary, error) {
	f.lastCode = code
	if f.err != nil {
		return report.FunnelSummary{}, f.err
	}
	if _, err := report.ParsePeriodCode(code); err != nil {
		return report.FunnelSummary{}, err
	}
	return report.FunnelSummary{
		Orders: report.OrderTotals{Orders: 3},
		KPI:    report.KPI{CTR: 2.5},
	}, nil
}

func (f *fakeSummaries) ComputeDashboardSummary(ctx context.Context, code string) (report.DashboardSummary, error) {
	if _, err := f.ComputeFunnelSummary(ctx, code); err != nil {
		return report.DashboardSummary{}, err
	}
	return report.DashboardSummary{
		Orders: report.NewMetricDelta(3, 2),
	}, nil
}

func TestDashboardHandler_GetFunnel(t *testing.T) {
	t.Run("defaults to 30d", func(t *testing.T) {
		svc := &fakeSummaries{}
		h := NewDashboardHandler(svc)

		w := serve(http.MethodGet, "/funnel", "/funnel", h.GetFunnel)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, DefaultPeriod, svc.lastCode)

		var summary report.FunnelSummary
		resp := decode(t, w, &summary)
		assert.True(t, resp.Success)
		assert.Equal(t, int64(3), summary.Orders.Orders)
		assert.InDelta(t, 2.5, summary.KPI.CTR, 1e-9)
	})

	t.Run("passes the period through", func(t *testing.T) {
		svc := &fakeSummaries{}
		h := NewDashboardHandler(svc)

		w := serve(http.MethodGet, "/funnel", "/funnel?period=ytd", h.GetFunnel)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ytd", svc.lastCode)
	})

	t.Run("rejects unknown period", func(t *testing.T) {
		h := NewDashboardHandler(&fakeSummaries{})

		w := serve(http.MethodGet, "/funnel", "/funnel?period=14d", h.GetFunnel)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidPeriod, resp.Error.Code)
	})

	t.Run("cancelled request", func(t *testing.T) {
		h := NewDashboardHandler(&fakeSummaries{err: context.Canceled})

		w := serve(http.MethodGet, "/funnel", "/funnel", h.GetFunnel)

		assert.Equal(t, 499, w.Code)
	})
}

func TestDashboardHandler_GetSummary(t *testing.T) {
	t.Run("returns deltas", func(t *testing.T) {
		svc := &fakeSummaries{}
		h := NewDashboardHandler(svc)

		w := serve(http.MethodGet, "/summary", "/summary?period=7d", h.GetSummary)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "7d", svc.lastCode)

		var summary report.DashboardSummary
		decode(t, w, &summary)
		assert.InDelta(t, 3, summary.Orders.Current, 1e-9)
		assert.InDelta(t, 2, summary.Orders.Previous, 1e-9)
		assert.InDelta(t, 50, summary.Orders.PercentChange, 1e-9)
	})

	t.Run("rejects empty period", func(t *testing.T) {
		h := NewDashboardHandler(&fakeSummaries{})

		w := serve(http.MethodGet, "/summary", "/summary?period=", h.GetSummary)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
