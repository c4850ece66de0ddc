package router

import (
	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/internal/handle"
	"github.com/simholt/hyrax/pkg/middleware"
)

// RegisterReportRoutes 注册报表与索引维护路由，仅管理员可用.
func RegisterReportRoutes(g *gin.RouterGroup) {
	admin := g.Group("", middleware.RequireMinRole(middleware.RoleAdmin))
	{
		admin.POST("/reports/collections", handle.GenerateCountReport)
		admin.POST("/index/rebuild", handle.RebuildIndex)
	}
}
