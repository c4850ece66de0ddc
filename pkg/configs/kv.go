package configs

import (
	"time"

	"github.com/spf13/viper"
)

// KV 后端类型；计数缓存、代际号与响应缓存都放在这里.
const (
	KVTypeMemory     = "memory"
	KVTypeRedis      = "redis"
	KVTypeNATS       = "nats"
	KVTypeGroupcache = "groupcache"
)

const (
	DefaultKVNATSBucket    = "hyrax-counts"
	DefaultKVNATSMaxAge    = 24 * time.Hour
	DefaultGroupcacheName  = "hyrax-counts"
	DefaultGroupcacheBytes = 64 << 20
)

// KVConfig 多实例部署应选 redis 或 nats，memory 与 groupcache 的代际号只在本进程内有效.
type KVConfig struct {
	Type       string             `mapstructure:"type"       rule:"oneof=memory redis nats groupcache"`
	Redis      RedisKVConfig      `mapstructure:"redis"`
	NATS       NATSKVConfig       `mapstructure:"nats"`
	Groupcache GroupcacheKVConfig `mapstructure:"groupcache"`
}

type RedisKVConfig struct {
	Addr     string `mapstructure:"addr"     rule:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// NATSKVConfig JetStream KV；MaxAge 是整个 bucket 的保留期，单条 TTL 另行记录.
type NATSKVConfig struct {
	URL      string        `mapstructure:"url"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Bucket   string        `mapstructure:"bucket"  rule:"required"`
	MaxAge   time.Duration `mapstructure:"max_age" rule:"min=0"`
}

type GroupcacheKVConfig struct {
	Name       string   `mapstructure:"name"        rule:"required"`
	CacheBytes int64    `mapstructure:"cache_bytes" rule:"min=1048576"`
	Peers      []string `mapstructure:"peers"       rule:"dive,url"`
	Self       string   `mapstructure:"self"        rule:"omitempty,url"`
}

// GetKVType 未配置时为 memory.
func (c *KVConfig) GetKVType() string {
	if c.Type == "" {
		return KVTypeMemory
	}

	return c.Type
}

func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", KVTypeMemory)

	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.db", 0)

	v.SetDefault("kv.nats.url", "nats://localhost:4222")
	v.SetDefault("kv.nats.bucket", DefaultKVNATSBucket)
	v.SetDefault("kv.nats.max_age", DefaultKVNATSMaxAge)

	v.SetDefault("kv.groupcache.name", DefaultGroupcacheName)
	v.SetDefault("kv.groupcache.cache_bytes", DefaultGroupcacheBytes)
	v.SetDefault("kv.groupcache.peers", []string{})
	v.SetDefault("kv.groupcache.self", "")
}
