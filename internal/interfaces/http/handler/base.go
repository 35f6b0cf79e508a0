package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/report"
	erpimport "github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/import"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/logger"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/dto"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.Fail(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.StatusOf(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// HandleError maps service errors onto the error envelope.
// Unknown errors are logged and reported as internal without their message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := errorCode(err)
	if code == dto.ErrCodeInternal {
		logger.FromGin(c, nil).Error("Request failed", zap.Error(err))
		h.ErrorWithCode(c, code, "An unexpected error occurred")
		return
	}
	_ = c.Error(err)
	h.ErrorWithCode(c, code, err.Error())
}

// errorCode classifies err by the sentinels it wraps
func errorCode(err error) string {
	switch {
	case errors.Is(err, report.ErrInvalidPeriod):
		return dto.ErrCodeInvalidPeriod
	case errors.Is(err, erpimport.ErrMissingColumns):
		return dto.ErrCodeMissingColumns
	case errors.Is(err, erpimport.ErrUnknownKind):
		return dto.ErrCodeUnknownKind
	case errors.Is(err, erpimport.ErrFileNotFound):
		return dto.ErrCodeFileNotFound
	case errors.Is(err, erpimport.ErrUnsupportedFormat):
		return dto.ErrCodeUnsupportedFormat
	case errors.Is(err, erpimport.ErrFileTooLarge):
		return dto.ErrCodeFileTooLarge
	case errors.Is(err, erpimport.ErrEmptyFile),
		errors.Is(err, erpimport.ErrInvalidEncoding),
		errors.Is(err, erpimport.ErrMissingHeader):
		return dto.ErrCodeInvalidFile
	case errors.Is(err, integration.ErrSourceNotConfigured):
		return dto.ErrCodeSourceNotConfigured
	case errors.Is(err, integration.ErrTokenUnavailable):
		return dto.ErrCodeTokenUnavailable
	case errors.Is(err, integration.ErrUpstreamUnavailable),
		errors.Is(err, integration.ErrInvalidResponse):
		return dto.ErrCodeUpstreamUnavailable
	case errors.Is(err, context.Canceled):
		return dto.ErrCodeRequestCanceled
	default:
		return dto.ErrCodeInternal
	}
}
