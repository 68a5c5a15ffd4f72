package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/cdr-radar/pkg/common"
	"github.com/richxcame/cdr-radar/pkg/logger"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 {"error"} response. The panic is logged
// with the request's correlation id, route and stack. When the handler already
// started the response, only the log line is written.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			logger.WithContext(c.Request.Context()).Error("Panic recovered",
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("route", c.FullPath()),
				zap.Bool("response_started", c.Writer.Written()),
				zap.Stack("stack"),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			common.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
			c.Abort()
		}()

		c.Next()
	}
}
