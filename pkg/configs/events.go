package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool              `mapstructure:"enabled"` // 总开关
	Index   IndexEventsConfig `mapstructure:"index"`
	Work    WorkEventsConfig  `mapstructure:"work"`
	Report  ReportEvents      `mapstructure:"report"`
}

// IndexEventsConfig 检索索引相关事件开关。
type IndexEventsConfig struct {
	Updated bool `mapstructure:"updated"` // hy.index.updated，驱动计数缓存失效
}

// WorkEventsConfig 作品领域事件开关。
type WorkEventsConfig struct {
	Ingested bool `mapstructure:"ingested"`
}

// ReportEvents 报表事件开关。
type ReportEvents struct {
	Generated bool `mapstructure:"generated"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 缓存失效依赖该事件，默认开启
	v.SetDefault("events.index.updated", true)
	v.SetDefault("events.work.ingested", true)

	// 报表事件量很小，默认关闭，按需开启
	v.SetDefault("events.report.generated", false)
}
