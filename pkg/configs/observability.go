package configs

import (
	"time"

	"github.com/spf13/viper"
)

// 日志、指标与链路追踪的默认值.
const (
	DefaultLogLevel      = "info"
	DefaultLogFilePath   = "logs/hyrax.log"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 7
	DefaultLogMaxAgeDays = 28

	DefaultMetricsPath = "/metrics"

	DefaultTraceExporter  = "otlp-http"
	DefaultTraceEndpoint  = "http://localhost:4318"
	DefaultTraceBatchSize = 512
	DefaultTraceQueueSize = 2048
	DefaultTraceBatchWait = 5 * time.Second
)

// LogConfig 控制台日志始终开启，文件日志经 lumberjack 轮转.
type LogConfig struct {
	Level      string `mapstructure:"level"        rule:"oneof=trace debug info warn error"`
	EnableFile bool   `mapstructure:"enable_file"`
	FilePath   string `mapstructure:"file_path"    rule:"required_if=EnableFile true"`
	MaxSize    int    `mapstructure:"max_size_mb"  rule:"min=1"`
	MaxBackups int    `mapstructure:"max_backups"  rule:"min=0"`
	MaxAge     int    `mapstructure:"max_age_days" rule:"min=0"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig Prometheus 指标；检索请求耗时与计数缓存命中率也在这里暴露.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Path           string `mapstructure:"path"            rule:"startswith=/"`
	RuntimeMetrics bool   `mapstructure:"runtime_metrics"`
	Pprof          bool   `mapstructure:"pprof"` // 挂载 /debug/pprof
}

// TracingConfig OpenTelemetry 导出；服务名与版本固定为 hyrax 与 AppVersion.
type TracingConfig struct {
	Enabled      bool              `mapstructure:"enabled"`
	Exporter     string            `mapstructure:"exporter"       rule:"oneof=otlp-http otlp-grpc zipkin"`
	Endpoint     string            `mapstructure:"endpoint"       rule:"required_if=Enabled true"`
	SampleRate   float64           `mapstructure:"sample_rate"    rule:"min=0,max=1"`
	BatchTimeout time.Duration     `mapstructure:"batch_timeout"  rule:"min=0"`
	MaxBatchSize int               `mapstructure:"max_batch_size" rule:"min=1"`
	MaxQueueSize int               `mapstructure:"max_queue_size" rule:"gtefield=MaxBatchSize"`
	Attributes   map[string]string `mapstructure:"attributes"` // 额外资源属性，如 deployment.environment
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.enable_file", false)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAgeDays)
	v.SetDefault("log.compress", true)
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", DefaultMetricsPath)
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
}

func (c *TracingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", DefaultTraceExporter)
	v.SetDefault("tracing.endpoint", DefaultTraceEndpoint)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.batch_timeout", DefaultTraceBatchWait)
	v.SetDefault("tracing.max_batch_size", DefaultTraceBatchSize)
	v.SetDefault("tracing.max_queue_size", DefaultTraceQueueSize)
}
