package configs

import "github.com/spf13/viper"

const (
	DefaultRateLimitEnabled = false
	DefaultRateLimitRPS     = 20.0
	DefaultRateLimitBurst   = 40
	DefaultRateLimitKey     = "user"
)

// RateLimitConfig 令牌桶限流.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"min=0"`
	Burst   int     `mapstructure:"burst" rule:"min=0"`
	// Key 限流维度：global、ip、user（匿名回退到 IP）、header:<Name>
	Key string `mapstructure:"key" rule:"omitempty,ratelimitkey"`
	// ExemptPaths 不限流的路径前缀
	ExemptPaths []string `mapstructure:"exempt_paths"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
	v.SetDefault("rate_limit.exempt_paths", []string{"/api/v1/health", "/metrics"})
}
