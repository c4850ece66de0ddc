package router

import (
	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/internal/handle"
	"github.com/simholt/hyrax/pkg/middleware"
)

// RegisterSchedulerRoutes 注册调度器相关路由；修改操作需要管理员.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	g.GET("/scheduler/jobs", handle.SchedulerJobs)

	admin := g.Group("/scheduler/jobs", middleware.RequireMinRole(middleware.RoleAdmin))
	{
		admin.POST("/:name/run", handle.SchedulerRunJob)
		admin.DELETE("/:name", handle.SchedulerRemoveJob)
	}
}
