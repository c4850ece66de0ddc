package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/metrics"
)

// PrometheusMiddleware Prometheus监控中间件，endpoint 使用路由模板避免标签爆炸.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		// 执行下一个中间件/处理器
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.RequestCounter.WithLabelValues(method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}
