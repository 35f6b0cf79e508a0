package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
)

// DefaultPeriod is used when the period query parameter is absent
const DefaultPeriod = string(report.Period30Days)

// SummaryService computes period summaries
type SummaryService interface {
	ComputeFunnelSummary(ctx context.Context, code string) (report.FunnelSummary, error)
	ComputeDashboardSummary(ctx context.Context, code string) (report.DashboardSummary, error)
}

// DashboardHandler serves the funnel and period comparison views
type DashboardHandler struct {
	BaseHandler
	summaries SummaryService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(summaries SummaryService) *DashboardHandler {
	return &DashboardHandler{summaries: summaries}
}

// GetFunnel serves the funnel summary for ?period, 30d when absent
func (h *DashboardHandler) GetFunnel(c *gin.Context) {
	summary, err := h.summaries.ComputeFunnelSummary(c.Request.Context(), c.DefaultQuery("period", DefaultPeriod))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// GetSummary compares ?period with the period before it
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.summaries.ComputeDashboardSummary(c.Request.Context(), c.DefaultQuery("period", DefaultPeriod))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
