package configs

import (
	"time"

	"github.com/spf13/viper"
)

// HTTP 入口熔断默认值；检索服务自身的熔断见 search.breaker_*.
const (
	DefaultCBEnabled     = false
	DefaultCBFailureRate = 0.5
	DefaultCBMinRequests = 20
	DefaultCBInterval    = time.Minute
	DefaultCBOpenTimeout = 30 * time.Second
	DefaultCBHalfOpenMax = 5
)

// CircuitBreakerConfig 按 5xx 比例熔断整个 HTTP 入口.
type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	FailureRate float64       `mapstructure:"failure_rate"  rule:"min=0,max=1"`
	MinRequests uint32        `mapstructure:"min_requests"`
	Interval    time.Duration `mapstructure:"interval"      rule:"min=0"` // 统计窗口，0 表示不清零
	OpenTimeout time.Duration `mapstructure:"open_timeout"  rule:"min=0"` // 打开后多久进入半开
	HalfOpenMax uint32        `mapstructure:"half_open_max"`              // 半开状态放行的请求数
	// ExemptPaths 不计入也不受熔断影响的路径前缀，健康检查需要在熔断时仍能访问
	ExemptPaths []string `mapstructure:"exempt_paths"`
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", DefaultCBEnabled)
	v.SetDefault("circuit_breaker.failure_rate", DefaultCBFailureRate)
	v.SetDefault("circuit_breaker.min_requests", DefaultCBMinRequests)
	v.SetDefault("circuit_breaker.interval", DefaultCBInterval)
	v.SetDefault("circuit_breaker.open_timeout", DefaultCBOpenTimeout)
	v.SetDefault("circuit_breaker.half_open_max", DefaultCBHalfOpenMax)
	v.SetDefault("circuit_breaker.exempt_paths", []string{"/api/v1/health", "/metrics"})
}
