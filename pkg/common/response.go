package common

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the failure payload understood by the dashboard
type ErrorBody struct {
	Error string `json:"error"`
}

// SuccessResponse writes data as a bare JSON document with status 200
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

// ErrorResponse writes {"error": message} with the given status
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorBody{Error: message})
}

// AppErrorResponse writes an AppError using its own status code
func AppErrorResponse(c *gin.Context, err *AppError) {
	ErrorResponse(c, err.Code, err.Message)
}
