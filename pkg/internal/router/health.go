package router

import (
	"github.com/gin-gonic/gin"

	"github.com/simholt/hyrax/pkg/internal/handle"
)

// healthChecks 组件名到探测处理器；ready 汇总全部已启用组件.
var healthChecks = []struct {
	path    string
	handler gin.HandlerFunc
}{
	{"/db", handle.HealthDB},
	{"/search", handle.HealthSearch},
	{"/s3", handle.HealthS3},
	{"/kv", handle.HealthKV},
	{"/mq", handle.HealthMQ},
	{"/ready", handle.Ready},
}

// RegisterHealthCheckRoute 挂在 /health 下，不经过角色校验.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	health := g.Group("/health")
	for _, hc := range healthChecks {
		health.GET(hc.path, hc.handler)
	}
}
