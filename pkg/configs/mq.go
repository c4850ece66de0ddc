package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MQType 事件总线后端.
type MQType string

const (
	MQTypeNATS   MQType = "nats"
	MQTypeRedis  MQType = "redis"
	MQTypeMemory MQType = "memory" // 进程内 gochannel，只适合单实例
)

const (
	DefaultNATSURL           = "nats://localhost:4222"
	DefaultNATSClientName    = "hyrax"
	DefaultNATSMaxReconnects = 10
	DefaultNATSReconnectWait = 2 * time.Second
	DefaultNATSPingInterval  = 20 * time.Second
	DefaultNATSMaxPingsOut   = 3
	DefaultNATSReconnectBuf  = 8 << 20
	DefaultDurablePrefix     = "hyrax"
)

// MQConfig 索引变更、导入与报表事件的总线.
type MQConfig struct {
	Enabled bool          `mapstructure:"enabled"` // 关闭时事件发布为空操作，消费者不启动
	Type    MQType        `mapstructure:"type"    rule:"oneof=nats redis memory"`
	NATS    MQNATSConfig  `mapstructure:"nats"`
	Redis   MQRedisConfig `mapstructure:"redis"`
}

// MQNATSConfig NATS 连接；多个 URL 视为同一集群.
type MQNATSConfig struct {
	URLs          []string      `mapstructure:"urls"           rule:"min=1,dive,required"`
	ClientName    string        `mapstructure:"client_name"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	JWT           string        `mapstructure:"jwt"`
	NKeySeed      string        `mapstructure:"nkey_seed"      rule:"required_with=JWT"`
	MaxReconnects int           `mapstructure:"max_reconnects" rule:"min=-1"` // -1 无限重连
	ReconnectWait time.Duration `mapstructure:"reconnect_wait" rule:"min=0"`
	PingInterval  time.Duration `mapstructure:"ping_interval"  rule:"min=0"`
	MaxPingsOut   int           `mapstructure:"max_pings_out"  rule:"min=1"`
	ReconnectBuf  int           `mapstructure:"reconnect_buf"  rule:"min=0"`
	FailFast      bool          `mapstructure:"fail_fast"` // 启动时连不上直接报错
	Randomize     bool          `mapstructure:"randomize"` // 连接时打乱 URL 顺序
	JetStream     JetStreamConf `mapstructure:"jetstream"`
}

// JetStreamConf 持久化投递；关闭时退化为 core NATS，失去离线期间的事件.
type JetStreamConf struct {
	Enabled       bool   `mapstructure:"enabled"`
	AutoProvision bool   `mapstructure:"auto_provision"`
	TrackMsgID    bool   `mapstructure:"track_msg_id"` // 按消息 UUID 去重
	AckAsync      bool   `mapstructure:"ack_async"`
	DurablePrefix string `mapstructure:"durable_prefix"`
}

// MQRedisConfig Redis pub/sub，不持久化.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.enabled", true)
	v.SetDefault("mq.type", MQTypeMemory)

	v.SetDefault("mq.nats.urls", []string{DefaultNATSURL})
	v.SetDefault("mq.nats.client_name", DefaultNATSClientName)
	v.SetDefault("mq.nats.max_reconnects", DefaultNATSMaxReconnects)
	v.SetDefault("mq.nats.reconnect_wait", DefaultNATSReconnectWait)
	v.SetDefault("mq.nats.ping_interval", DefaultNATSPingInterval)
	v.SetDefault("mq.nats.max_pings_out", DefaultNATSMaxPingsOut)
	v.SetDefault("mq.nats.reconnect_buf", DefaultNATSReconnectBuf)
	v.SetDefault("mq.nats.fail_fast", false)
	v.SetDefault("mq.nats.randomize", true)
	v.SetDefault("mq.nats.jetstream.enabled", true)
	v.SetDefault("mq.nats.jetstream.auto_provision", true)
	v.SetDefault("mq.nats.jetstream.track_msg_id", true)
	v.SetDefault("mq.nats.jetstream.ack_async", false)
	v.SetDefault("mq.nats.jetstream.durable_prefix", DefaultDurablePrefix)

	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.db", 0)
}
