package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/cdr-radar/pkg/common"
)

// ValidateContentType rejects requests whose media type is not contentType
func ValidateContentType(contentType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if got := c.ContentType(); got != contentType {
			common.ErrorResponse(c, http.StatusUnsupportedMediaType,
				fmt.Sprintf("unsupported content type %q, expected %s", got, contentType))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ValidateJSONContentType ensures request has application/json content type
func ValidateJSONContentType() gin.HandlerFunc {
	return ValidateContentType("application/json")
}

// MaxBodySize buffers the request body, rejecting it with 413 once it exceeds maxSize
func MaxBodySize(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				common.ErrorResponse(c, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body exceeds %d bytes", maxSize))
			} else {
				common.ErrorResponse(c, http.StatusBadRequest, "unable to read request body")
			}
			c.Abort()
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}
