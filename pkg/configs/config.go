// Package configs 管理应用程序配置，包括数据库、对象存储、检索服务、队列等配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing Search config:
//
//	searchCfg := configs.GetConfig().Search
//	fmt.Println("select endpoint:", searchCfg.SelectURL())
//
// Example accessing Ingest options:
//
//	opts := configs.GetConfig().Ingest
//	if opts.LocalEnabled {
//		// 允许从服务器本地路径导入文件
//	}
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/simholt/hyrax/pkg/rule"
)

// AppVersion 当前应用版本.
const AppVersion = "0.3.0"

// EnvPrefix 环境变量前缀，例如 HYRAX_SERVER_PORT.
const EnvPrefix = "HYRAX"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置，端口、调试模式等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Search         SearchConfig         `mapstructure:"search"`          // SearchConfig 检索服务配置
		Ingest         IngestConfig         `mapstructure:"ingest"`          // IngestConfig 批量导入选项
		Report         ReportConfig         `mapstructure:"report"`          // ReportConfig 计数报表快照配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig HTTP 熔断配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流配置
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 认证配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件发布开关
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	// mu 保护热重载时的并发读写.
	mu sync.RWMutex
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// path 为空时只使用默认值与环境变量.
func InitConfig(path string) error {
	v := viper.New()
	// 设置默认值
	setAllDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if err := locateConfigFile(v, path); err != nil {
			return err
		}

		// 读取配置
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return err
	}

	mu.Lock()
	appViper = v
	globalConfig = cfg
	mu.Unlock()

	reloadConfigs(v, cfg.Server.ReloadConfig && path != "")

	return nil
}

// locateConfigFile 根据 path 是文件还是目录设置 viper 的查找方式.
func locateConfigFile(v *viper.Viper, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config path %s: %w", path, err)
	}

	if !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		v.SetConfigFile(path)

		return nil
	}

	// 是目录，设置配置名和路径
	v.SetConfigName("config")
	v.AddConfigPath(path)
	v.AddConfigPath(filepath.Join(path, "configs"))

	for _, ext := range []string{"yaml", "yml", "json", "toml", "env", "dotenv"} {
		cfg := filepath.Join(path, "config."+ext)
		if _, err := os.Stat(cfg); err == nil {
			v.SetConfigFile(cfg)

			break
		}
	}

	return nil
}

// decode 解析并校验配置.
func decode(v *viper.Viper) (AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := rule.ValidateStruct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		serverConfig ServerConfig
		logConfig    LogConfig
		dbConfig     DBConfig
		s3Config     S3Config
		kvConfig     KVConfig
		mqConfig     MQConfig
		searchConfig SearchConfig
		ingestConfig IngestConfig
		reportConfig ReportConfig
		metricsCfg   MetricsConfig
		tracingCfg   TracingConfig
		cbConfig     CircuitBreakerConfig
		rlConfig     RateLimitConfig
		authConfig   AuthConfig
		eventsConfig EventsConfig
	)

	serverConfig.setDefaults(v)
	logConfig.setDefaults(v)
	dbConfig.setDefaults(v)
	s3Config.setDefaults(v)
	kvConfig.setDefaults(v)
	mqConfig.setDefaults(v)
	searchConfig.setDefaults(v)
	ingestConfig.setDefaults(v)
	reportConfig.setDefaults(v)
	metricsCfg.setDefaults(v)
	tracingCfg.setDefaults(v)
	cbConfig.setDefaults(v)
	rlConfig.setDefaults(v)
	authConfig.setDefaults(v)
	eventsConfig.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		cfg, err := decode(v)
		if err != nil {
			fmt.Printf("Error reloading config: %v\n", err)

			return
		}

		mu.Lock()
		globalConfig = cfg
		mu.Unlock()
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	cfg := globalConfig

	return &cfg
}

// SetConfig 替换全局配置，主要用于测试与命令行覆盖.
func SetConfig(cfg AppConfig) {
	mu.Lock()
	globalConfig = cfg
	mu.Unlock()
}

// GetViper 返回全局 Viper 实例.
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()

	return appViper
}

// Defaults 返回仅由默认值构成的配置.
func Defaults() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	_ = v.Unmarshal(&cfg)

	return cfg
}
