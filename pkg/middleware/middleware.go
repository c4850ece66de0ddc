// Package middleware 提供 gin 中间件：身份与角色、限流、熔断、响应缓存、追踪、指标与请求日志.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/log"
)

// RecoveryMiddleware 捕获 panic，记录日志并返回 500.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.FromContext(c.Request.Context()).Error().
			Str("panic", fmt.Sprint(recovered)).
			Str("path", c.Request.URL.Path).
			Msg("handler panicked")

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
