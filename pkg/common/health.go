package common

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheckWithDeps returns a health check handler running every dependency
// check in parallel. Any failing check reports 503.
func HealthCheckWithDeps(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			mu           sync.Mutex
			wg           sync.WaitGroup
			status       = "healthy"
			checkResults = make(map[string]string, len(checks))
		)

		for name, checkFunc := range checks {
			wg.Add(1)
			go func(name string, check func() error) {
				defer wg.Done()
				result := "healthy"
				if err := check(); err != nil {
					result = "unhealthy: " + err.Error()
				}

				mu.Lock()
				defer mu.Unlock()
				checkResults[name] = result
				if result != "healthy" {
					status = "unhealthy"
				}
			}(name, checkFunc)
		}
		wg.Wait()

		statusCode := http.StatusOK
		if status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, HealthResponse{
			Status:    status,
			Service:   serviceName,
			Version:   version,
			Timestamp: time.Now().UTC(),
			Checks:    checkResults,
		})
	}
}
