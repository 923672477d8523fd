package middleware

import (
	"strconv"
	"time"

	"critiq/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request counts and latencies. Routes are labelled
// by their pattern so ids do not explode the label space.
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
