package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/dto"
)

// SystemHandler handles health and build information endpoints
type SystemHandler struct {
	name      string
	version   string
	sources   map[integration.SourceCode]bool
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. sources tells which
// upstream providers were configured at startup.
func NewSystemHandler(name, version string, sources map[integration.SourceCode]bool) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		sources:   sources,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                          `json:"status"`
	Name      string                          `json:"name"`
	Version   string                          `json:"version"`
	GoVersion string                          `json:"go_version"`
	Uptime    string                          `json:"uptime"`
	Sources   map[integration.SourceCode]bool `json:"sources"`
	Timestamp string                          `json:"timestamp"`
}

// Health reports liveness along with which sources are configured
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.OK(HealthResponse{
		Status:    "ok",
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Sources:   h.sources,
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}
