// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、检索服务、计数聚合等指标.
//
// Example:
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.RequestCounter.WithLabelValues("GET", "/api/v1/collections/counts", "200").Inc()
//	metrics.AggregationDuration.Observe(0.1)
package metrics

import (
	"net/http"
	"net/http/pprof"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/simholt/hyrax/pkg/configs"
)

const namespace = "hyrax"

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 处理中的请求数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// SearchRequestDuration 检索服务请求耗时，outcome 为 ok/unavailable/bad_response.
	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_request_duration_seconds",
			Help:      "Search service request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op", "outcome"},
	)

	// AggregationDuration 一次计数聚合的耗时.
	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of one work/file count aggregation",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// AggregationErrors 聚合失败次数，kind 为 unavailable/malformed/truncated.
	AggregationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_errors_total",
			Help:      "Aggregation failures by kind",
		},
		[]string{"kind"},
	)

	// CountsCacheLookups 计数缓存查找，result 为 hit/miss/error.
	CountsCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counts_cache_lookups_total",
			Help:      "Collection counts cache lookups by result",
		},
		[]string{"result"},
	)

	// IngestItems 批量导入条目，outcome 为 ok/failed.
	IngestItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_items_total",
			Help:      "Batch ingest items by outcome",
		},
		[]string{"outcome"},
	)

	// ReportsGenerated 已生成的计数报表快照数.
	ReportsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Collection count report snapshots written",
		},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	runtimeOnce sync.Once
)

func init() {
	registry.MustRegister(
		RequestCounter,
		RequestDuration,
		ActiveConnections,
		SearchRequestDuration,
		AggregationDuration,
		AggregationErrors,
		CountsCacheLookups,
		IngestItems,
		ReportsGenerated,
	)
}

// InitMetrics 初始化Metrics，按需注册运行时收集器.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled || !config.RuntimeMetrics {
		return nil
	}

	runtimeOnce.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})

	return nil
}

// Mount 在 engine 上挂载指标端点与可选的 pprof.
func Mount(config configs.MetricsConfig, engine *gin.Engine) {
	if !config.Enabled {
		return
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(Handler()))

	if config.Pprof {
		pp := engine.Group("/debug/pprof")
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
		pp.GET("/:name", func(c *gin.Context) {
			pprof.Handler(c.Param("name")).ServeHTTP(c.Writer, c.Request)
		})
	}
}

// Handler 返回注册表的 HTTP 处理器.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
