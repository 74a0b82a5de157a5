package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/citypulse/server/internal/metrics"
)

// MetricsMiddleware records request counts, latency and in-flight requests
// per matched route.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.IncInFlight()
		defer metrics.DecInFlight()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
