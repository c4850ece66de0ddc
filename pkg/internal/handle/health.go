package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/simholt/hyrax/pkg/context"
)

const timeout = 2 * time.Second

// probe 单个组件的检查；nil 表示未初始化.
type probe func(ctx context.Context) error

func probes(ctx context.Context) map[string]probe {
	out := map[string]probe{}

	if dbc := ctxPkg.GetDBClient(ctx); dbc != nil {
		out["db"] = dbc.Ping
	} else {
		out["db"] = nil
	}

	if sc := ctxPkg.GetSearchClient(ctx); sc != nil {
		out["search"] = sc.Ping
	} else {
		out["search"] = nil
	}

	// 以下组件可选，未启用时不出现在结果中
	if s3c := ctxPkg.GetS3Client(ctx); s3c != nil {
		out["s3"] = s3c.HealthCheck
	}

	if kvc := ctxPkg.GetKVClient(ctx); kvc != nil {
		out["kv"] = func(ctx context.Context) error {
			_, err := kvc.Exists(ctx, "health:probe")
			return err
		}
	}

	if mqc := ctxPkg.GetMQClient(ctx); mqc != nil {
		out["mq"] = func(context.Context) error { return nil }
	}

	return out
}

func check(c *gin.Context, component string, p probe, registered bool) {
	if !registered || p == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": component + " client not initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := p(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": component, "status": "ok"})
}

func healthOf(c *gin.Context, component string) {
	p, ok := probes(c.Request.Context())[component]
	check(c, component, p, ok)
}

// HealthDB 数据库健康检查.
//
//	@Summary	数据库健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/db [get]
func HealthDB(c *gin.Context) { healthOf(c, "db") }

// HealthSearch 检索服务健康检查.
//
//	@Summary	检索服务健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/search [get]
func HealthSearch(c *gin.Context) { healthOf(c, "search") }

// HealthS3 对象存储健康检查.
//
//	@Summary	对象存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/s3 [get]
func HealthS3(c *gin.Context) { healthOf(c, "s3") }

// HealthKV 键值存储健康检查.
//
//	@Summary	键值存储健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/kv [get]
func HealthKV(c *gin.Context) { healthOf(c, "kv") }

// HealthMQ 消息队列健康检查.
//
//	@Summary	消息队列健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	map[string]string
//	@Router		/api/v1/health/mq [get]
func HealthMQ(c *gin.Context) { healthOf(c, "mq") }

// Ready 汇总所有已启用组件的状态，任一失败返回 503.
//
//	@Summary	就绪检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/api/v1/health/ready [get]
func Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	status := http.StatusOK
	components := gin.H{}

	for name, p := range probes(ctx) {
		switch {
		case p == nil:
			components[name] = "not initialized"
			status = http.StatusServiceUnavailable
		case p(ctx) != nil:
			components[name] = "unhealthy"
			status = http.StatusServiceUnavailable
		default:
			components[name] = "ok"
		}
	}

	c.JSON(status, gin.H{"ready": status == http.StatusOK, "components": components})
}
