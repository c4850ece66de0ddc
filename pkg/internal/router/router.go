// Package router 管理路由配置，将处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"

	appcache "github.com/simholt/hyrax/pkg/cache"
	"github.com/simholt/hyrax/pkg/configs"
)

const apiPrefix = "/api/v1"

// Options 路由注册所需的外部资源.
type Options struct {
	// Cache 为 nil 或 search.counts_cache_ttl 为 0 时计数接口不做响应缓存
	Cache  *appcache.Cache
	Config configs.AppConfig
}

// Register 在 /api/v1 下注册全部业务路由，并在调试模式下挂载 swagger.
func Register(e *gin.Engine, opts Options) {
	v1 := e.Group(apiPrefix)

	RegisterHealthCheckRoute(v1)
	RegisterCollectionRoutes(v1, opts)
	RegisterIngestRoutes(v1)
	RegisterReportRoutes(v1)
	RegisterSchedulerRoutes(v1)

	RegisterSwaggerRoute(e, opts.Config.Server)
}
