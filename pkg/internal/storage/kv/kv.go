// Package kv 提供用于键值存储的接口和实现.
package kv

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/simholt/hyrax/pkg/configs"
)

// ErrKeyNotFound 键不存在或已过期.
var ErrKeyNotFound = errors.New("key not found")

type Client struct {
	KVStore

	kvType KVType
}

// Type 返回底层 KV 类型.
func (c *Client) Type() KVType {
	return c.kvType
}

// KVStore 定义键值存储接口.
type KVStore interface {
	// Get 获取键的值，不存在时返回包装的 ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 设置键的值，可选过期时间.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 删除键.
	Delete(ctx context.Context, key string) error
	// Exists 检查键是否存在.
	Exists(ctx context.Context, key string) (bool, error)
	// Keys 获取匹配 glob 模式的键（用于调试与清理）.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Close 关闭存储连接.
	Close() error
}

// Incrementer 由支持原子自增的后端实现.
type Incrementer interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// KVType 键值存储类型.
type KVType string

const (
	KVTypeMemory     KVType = configs.KVTypeMemory
	KVTypeRedis      KVType = configs.KVTypeRedis
	KVTypeNATS       KVType = configs.KVTypeNATS
	KVTypeGroupcache KVType = configs.KVTypeGroupcache
)

// KVFactory 定义创建 KVStore 的工厂函数类型.
type KVFactory func(ctx context.Context, config any) (KVStore, error)

// kvFactories 存储 KV 类型到工厂的映射.
var kvFactories = make(map[KVType]KVFactory)

// RegisterKVFactory 注册 KV 工厂函数.
func RegisterKVFactory(kvType KVType, factory KVFactory) {
	kvFactories[kvType] = factory
}

// GetRegisteredKVTypes 返回已注册的 KV 类型列表（已排序）.
func GetRegisteredKVTypes() []KVType {
	types := make([]KVType, 0, len(kvFactories))
	for kvType := range kvFactories {
		types = append(types, kvType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// NewKVStore 根据类型创建 KVStore 实例.
func NewKVStore(ctx context.Context, kvType KVType, config any) (KVStore, error) {
	factory, exists := kvFactories[kvType]
	if !exists {
		return nil, fmt.Errorf("unsupported KV type: %s", kvType)
	}

	return factory(ctx, config)
}

// New 按配置创建 KV 客户端.
func New(ctx context.Context, cfg configs.KVConfig) (*Client, error) {
	kvType := KVType(cfg.Type)
	if kvType == "" {
		kvType = KVTypeMemory
	}

	var sub any

	switch kvType {
	case KVTypeRedis:
		sub = &cfg.Redis
	case KVTypeNATS:
		sub = &cfg.NATS
	case KVTypeGroupcache:
		sub = &cfg.Groupcache
	case KVTypeMemory:
		sub = nil
	}

	store, err := NewKVStore(ctx, kvType, sub)
	if err != nil {
		return nil, err
	}

	return &Client{KVStore: store, kvType: kvType}, nil
}

// NewKVClient 使用全局配置创建 KV 客户端.
func NewKVClient(ctx context.Context) (*Client, error) {
	return New(ctx, configs.GetConfig().KV)
}

// Incr 对 key 做自增；后端不支持原子自增时退化为读改写.
func Incr(ctx context.Context, store KVStore, key string) (int64, error) {
	if c, ok := store.(*Client); ok {
		store = c.KVStore
	}

	if inc, ok := store.(Incrementer); ok {
		return inc.Incr(ctx, key)
	}

	var cur int64

	raw, err := store.Get(ctx, key)

	switch {
	case err == nil:
		cur, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value of %s is not an integer: %w", key, err)
		}
	case errors.Is(err, ErrKeyNotFound):
	default:
		return 0, err
	}

	cur++
	if err := store.Set(ctx, key, []byte(strconv.FormatInt(cur, 10)), 0); err != nil {
		return 0, err
	}

	return cur, nil
}

// matchPattern 以 glob 语义匹配键，空模式匹配全部.
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	ok, err := path.Match(pattern, key)

	return err == nil && ok
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}
