package configs

import (
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort              = 8080
	DefaultHost              = "0.0.0.0"
	DefaultReloadConfig      = true
	DefaultDebug             = false
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second // 等待进行中的计数请求与报表任务结束
)

// ServerConfig HTTP 服务配置；debug 同时打开 swagger 与调用栈日志.
type ServerConfig struct {
	Port              int           `mapstructure:"port"                rule:"min=1,max=65535"`
	Host              string        `mapstructure:"host"                rule:"ip"`
	ReloadConfig      bool          `mapstructure:"reload_config"`
	Debug             bool          `mapstructure:"debug"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" rule:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    rule:"min=0"`
}

// Addr 监听地址.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
	v.SetDefault("server.read_header_timeout", DefaultReadHeaderTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
}
