package middleware

import (
	"github.com/gin-gonic/gin"

	ctxPkg "github.com/simholt/hyrax/pkg/context"
	"github.com/simholt/hyrax/pkg/internal/storage"
	"github.com/simholt/hyrax/pkg/scheduler"
)

// BackendsMiddleware 把存储管理器与调度器放进请求上下文；二者都可以为 nil.
func BackendsMiddleware(manager *storage.Manager, sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if manager != nil {
			ctx = ctxPkg.WithStorageManager(ctx, manager)
		}

		if sched != nil {
			ctx = ctxPkg.WithScheduler(ctx, sched)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetScheduler 当前请求可用的调度器.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	return ctxPkg.GetScheduler(c.Request.Context())
}
