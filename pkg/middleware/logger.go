package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/cdr-radar/pkg/logger"
	"go.uber.org/zap"
)

// quietPaths are probed constantly and only logged when they fail
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// RequestLogger logs HTTP requests with the request's correlation id
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		if quietPaths[path] && status < 400 {
			return
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
		}

		reqLogger := logger.WithContext(c.Request.Context())
		switch {
		case len(c.Errors) > 0 && status >= 500:
			reqLogger.Error("Request failed", append(fields, zap.String("errors", c.Errors.String()))...)
		case len(c.Errors) > 0:
			reqLogger.Warn("Request rejected", append(fields, zap.String("errors", c.Errors.String()))...)
		default:
			reqLogger.Info("Request completed", fields...)
		}
	}
}
