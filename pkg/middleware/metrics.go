package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/readme-readyou/readme-readyou/pkg/metrics"
)

// Metrics records request latency labelled by the matched route template, so
// identifiers never become label values.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
