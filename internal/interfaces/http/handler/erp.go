package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	erpimport "github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/import"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/dto"
)

// ErpTableLoader loads parsed ERP exports
type ErpTableLoader interface {
	LoadTable(ctx context.Context, kind erpimport.Kind, forceReload bool) (*erpimport.Table, error)
}

// ErpHandler serves uploaded ERP exports
type ErpHandler struct {
	BaseHandler
	loader ErpTableLoader
}

// NewErpHandler creates a new ErpHandler. loader may be nil when no export
// directory is configured.
func NewErpHandler(loader ErpTableLoader) *ErpHandler {
	return &ErpHandler{loader: loader}
}

// GetTable returns the parsed export of :kind.
// ?reload=true bypasses the loader cache, ?limit=N caps the returned rows.
func (h *ErpHandler) GetTable(c *gin.Context) {
	kind, err := erpimport.ParseKind(c.Param("kind"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if h.loader == nil {
		h.HandleError(c, integration.ErrSourceNotConfigured)
		return
	}

	var req dto.ErpTableRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	table, err := h.loader.LoadTable(c.Request.Context(), kind, req.Reload)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewErpTableResponse(table, req.Limit))
}
