// Package cache 提供基于键值存储的泛型缓存实现.
//
// 值用 sonic 编码后写入 KV，支持 TTL.失效采用"代数"方式：键里带上一个计数器，
// 计数器自增后旧键自然不再被读到，随 TTL 过期.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore)
//
//	gen, _ := c.Generation(ctx, "counts:generation")
//	key := cache.Key("counts", gen, user, "read", field)
//
//	items, err := cache.GetOrSet(ctx, c, key, func() ([]Item, error) {
//		return compute(ctx)
//	}, time.Minute)
//
//	// 数据变化后
//	_, _ = c.Bump(ctx, "counts:generation")
//
// 错误处理:
//   - 缓存未命中不视为错误，Lookup 返回 ok=false
//   - 序列化/反序列化错误会被包装并返回
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/simholt/hyrax/pkg/internal/storage/kv"
)

// Cache 基于 KV 的缓存；同一个 Cache 上并发未命中的同键加载只执行一次.
type Cache struct {
	kvStore kv.KVStore
	loads   singleflight.Group
}

func NewCache(kvStore kv.KVStore) *Cache {
	return &Cache{kvStore: kvStore}
}

// Key 由前缀、代数和若干部分组成缓存键，各部分经 xxhash 压缩.
func Key(prefix string, generation int64, parts ...string) string {
	sum := xxhash.Sum64String(strings.Join(parts, "\x00"))

	return prefix + ":" + strconv.FormatInt(generation, 10) + ":" + strconv.FormatUint(sum, 16)
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Lookup 与 Get 相同，但把未命中与错误区分开.
func Lookup[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	value, err := Get[T](ctx, c, key)

	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, kv.ErrKeyNotFound):
		return value, false, nil
	default:
		return value, false, err
	}
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, key, data, ttl)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, key)
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, key)
}

// GetOrSet 未命中时调用 getter 并回写；读写缓存出错都按未命中处理.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	if value, ok, err := Lookup[T](ctx, c, key); err == nil && ok {
		return value, nil
	}

	v, err, _ := c.loads.Do(key, func() (any, error) {
		value, err := getter()
		if err != nil {
			return nil, err
		}

		_ = Set(ctx, c, key, value, ttl)

		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return v.(T), nil
}

// Generation 读取代数计数器，不存在时为 0.
func (c *Cache) Generation(ctx context.Context, key string) (int64, error) {
	raw, err := c.kvStore.Get(ctx, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	gen, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("generation %s is not an integer: %w", key, err)
	}

	return gen, nil
}

// Bump 代数加一，之前写入的键随之失效.
func (c *Cache) Bump(ctx context.Context, key string) (int64, error) {
	return kv.Incr(ctx, c.kvStore, key)
}

// Clear 按 glob 模式删除缓存键，空模式删除全部.
func (c *Cache) Clear(ctx context.Context, pattern string) error {
	keys, err := c.kvStore.Keys(ctx, pattern)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}
