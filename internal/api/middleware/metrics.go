package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"styleswap/internal/monitoring"
)

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		monitoring.HttpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		monitoring.ResponseTimeHistogram.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
