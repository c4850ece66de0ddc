// Package api 对外暴露 HTTP 接口的注册入口，便于在其他 gin 引擎中嵌入.
package api

import (
	"github.com/gin-gonic/gin"

	appcache "github.com/simholt/hyrax/pkg/cache"
	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/router"
)

// RegisterGroup 在 e 上注册 /api/v1 路由；c 为 nil 时计数接口不做响应缓存.
func RegisterGroup(e *gin.Engine, cfg configs.AppConfig, c *appcache.Cache) *gin.Engine {
	router.Register(e, router.Options{Cache: c, Config: cfg})

	return e
}
