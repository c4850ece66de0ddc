package router

import (
	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/internal/handle"
	"github.com/simholt/hyrax/pkg/internal/service"
	"github.com/simholt/hyrax/pkg/middleware"
)

// countsVaryHeaders 参与响应缓存键的身份相关请求头.
var countsVaryHeaders = []string{
	"X-Auth-Request-Email",
	"X-Forwarded-Email",
	"X-Auth-Request-Groups",
	"X-Role",
}

// RegisterCollectionRoutes 注册集合相关路由.
func RegisterCollectionRoutes(g *gin.RouterGroup, opts Options) {
	collections := g.Group("/collections")

	counts := []gin.HandlerFunc{handle.GetCollectionCounts}

	if ttl := opts.Config.Search.CountsCacheTTL; opts.Cache != nil && ttl > 0 {
		cfg := middleware.DefaultCacheConfig(opts.Cache)
		cfg.TTL = ttl
		cfg.GenerationKey = service.CountsGenerationKey
		cfg.VaryHeaders = countsVaryHeaders

		counts = append([]gin.HandlerFunc{middleware.CacheMiddleware(cfg)}, counts...)
	}

	collections.GET("/counts", counts...)
	collections.POST("", middleware.RequireMinRole(middleware.RoleEditor), handle.CreateCollection)
}
