package handler

import (
	"net/http"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/token"
)

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("nm-dashboard", "1.2.0", map[integration.SourceCode]bool{
		integration.SourceAds:         true,
		integration.SourceMarketplace: false,
		integration.SourceErp:         true,
	})

	w := serve(http.MethodGet, "/health", "/health", h.Health)

	assert.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	resp := decode(t, w, &health)
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "nm-dashboard", health.Name)
	assert.Equal(t, "1.2.0", health.Version)
	assert.Equal(t, runtime.Version(), health.GoVersion)
	assert.True(t, health.Sources[integration.SourceAds])
	assert.False(t, health.Sources[integration.SourceMarketplace])
	assert.NotEmpty(t, health.Timestamp)
}

type fakeTokenStatus struct {
	status token.Status
}

func (f fakeTokenStatus) Status() token.Status {
	return f.status
}

func TestTokenHandler_GetStatus(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		expires := time.Date(2024, 3, 16, 12, 0, 0, 0, time.UTC)
		h := NewTokenHandler(fakeTokenStatus{status: token.Status{
			Configured:   true,
			ExpiresAt:    expires,
			NeedsRefresh: true,
			LastError:    "refresh rejected",
		}})

		w := serve(http.MethodGet, "/token/status", "/token/status", h.GetStatus)

		assert.Equal(t, http.StatusOK, w.Code)
		var status token.Status
		decode(t, w, &status)
		assert.True(t, status.Configured)
		assert.True(t, status.NeedsRefresh)
		assert.True(t, expires.Equal(status.ExpiresAt))
		assert.Equal(t, "refresh rejected", status.LastError)
		assert.NotContains(t, w.Body.String(), "access_token")
	})

	t.Run("not configured", func(t *testing.T) {
		h := NewTokenHandler(nil)

		w := serve(http.MethodGet, "/token/status", "/token/status", h.GetStatus)

		assert.Equal(t, http.StatusOK, w.Code)
		var status token.Status
		decode(t, w, &status)
		assert.False(t, status.Configured)
	})
}
