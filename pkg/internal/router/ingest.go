package router

import (
	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/internal/handle"
	"github.com/simholt/hyrax/pkg/middleware"
)

// RegisterIngestRoutes 注册批量导入路由.
func RegisterIngestRoutes(g *gin.RouterGroup) {
	g.POST("/ingest", middleware.RequireMinRole(middleware.RoleEditor), handle.BatchIngest)
}
