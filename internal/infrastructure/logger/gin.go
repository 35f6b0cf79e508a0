package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Gin context keys. requestIDGinKey is filled by the request ID middleware,
// which must run first.
const (
	loggerGinKey    = "logger"
	requestIDGinKey = "request_id"
)

// GinMiddleware logs one entry per request, at warn for 4xx and error for 5xx.
// It also puts a request-scoped logger into the request context, so services
// called from handlers log with the request ID. Paths in skip (health probes,
// metrics scrapes) are served without an access log entry.
func GinMiddleware(base *zap.Logger, skip ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		ctx, scoped := WithRequestID(c.Request.Context(), base, c.GetString(requestIDGinKey))
		scoped = scoped.With(zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))
		c.Request = c.Request.WithContext(WithContext(ctx, scoped))
		c.Set(loggerGinKey, scoped)

		c.Next()

		if _, ok := quiet[c.Request.URL.Path]; ok {
			return
		}

		status := c.Writer.Status()
		level := zapcore.InfoLevel
		if status >= http.StatusInternalServerError {
			level = zapcore.ErrorLevel
		} else if status >= http.StatusBadRequest {
			level = zapcore.WarnLevel
		}

		ce := scoped.Check(level, "Request served")
		if ce == nil {
			return
		}
		fields := []zap.Field{
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}
		ce.Write(fields...)
	}
}

// Recovery turns a handler panic into a 500 and logs it with the stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			FromGin(c, base).Error("Panic recovered",
				zap.String("request_id", c.GetString(requestIDGinKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

// FromGin returns the request-scoped logger set by GinMiddleware, or fallback
func FromGin(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if v, ok := c.Get(loggerGinKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	if c.Request != nil {
		return FromContext(c.Request.Context(), fallback)
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}
