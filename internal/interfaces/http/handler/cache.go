package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/cache"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/scheduler"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/dto"
)

// CacheAdmin is the administrative surface of the provider cache
type CacheAdmin interface {
	Stats() cache.Stats
	DeletePattern(substr string) int
	Clear()
	Len() int
}

// WarmupTrigger starts an out-of-schedule cache warm-up
type WarmupTrigger interface {
	TriggerRun(ctx context.Context) error
	Status() scheduler.Status
}

// CacheHandler exposes cache statistics and invalidation
type CacheHandler struct {
	BaseHandler
	cache  CacheAdmin
	warmer WarmupTrigger
}

// NewCacheHandler creates a new CacheHandler. warmer may be nil when the
// scheduler is disabled.
func NewCacheHandler(c CacheAdmin, warmer WarmupTrigger) *CacheHandler {
	return &CacheHandler{cache: c, warmer: warmer}
}

// CacheStatsResponse is the body of GET /cache/stats
type CacheStatsResponse struct {
	cache.Stats
	Warmer *scheduler.Status `json:"warmer,omitempty"`
}

// InvalidateResponse is the body of DELETE /cache
type InvalidateResponse struct {
	Pattern string `json:"pattern"`
	Removed int    `json:"removed"`
}

// GetStats returns hit/miss counters and entry count
func (h *CacheHandler) GetStats(c *gin.Context) {
	resp := CacheStatsResponse{Stats: h.cache.Stats()}
	if h.warmer != nil {
		status := h.warmer.Status()
		resp.Warmer = &status
	}
	h.Success(c, resp)
}

// Invalidate removes keys containing ?pattern=, or everything when it is empty
func (h *CacheHandler) Invalidate(c *gin.Context) {
	pattern := c.Query("pattern")
	if pattern == "" {
		removed := h.cache.Len()
		h.cache.Clear()
		h.Success(c, InvalidateResponse{Removed: removed})
		return
	}
	h.Success(c, InvalidateResponse{Pattern: pattern, Removed: h.cache.DeletePattern(pattern)})
}

// Warm triggers a background warm-up run
func (h *CacheHandler) Warm(c *gin.Context) {
	if h.warmer == nil {
		h.ErrorWithCode(c, dto.ErrCodeWarmerDisabled, "cache warmer is disabled")
		return
	}
	if err := h.warmer.TriggerRun(c.Request.Context()); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeWarmerDisabled, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, dto.OK(gin.H{"triggered": true}))
}
