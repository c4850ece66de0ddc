//go:build !no_redis

package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simholt/hyrax/pkg/configs"
)

const (
	redisScanBatch      = 500
	redisDialTimeout    = 3 * time.Second
	redisCommandTimeout = 2 * time.Second
)

// RedisKV 多实例部署时计数缓存与代际号共用的后端.
type RedisKV struct {
	rdb *redis.Client
}

// NewRedisKV 连接 Redis 并做一次 PING.
func NewRedisKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.RedisKVConfig)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("redis kv: expected *configs.RedisKVConfig, got %T", config)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisCommandTimeout,
		WriteTimeout: redisCommandTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis kv: ping %s: %w", cfg.Addr, err)
	}

	return &RedisKV{rdb: rdb}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()

	switch {
	case errors.Is(err, redis.Nil):
		return nil, notFound(key)
	case err != nil:
		return nil, fmt.Errorf("redis kv: get %s: %w", key, err)
	}

	return b, nil
}

// Set ttl<=0 表示不过期，过期交给 Redis 处理.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis kv: set %s: %w", key, err)
	}

	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis kv: del %s: %w", key, err)
	}

	return nil
}

func (r *RedisKV) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis kv: exists %s: %w", key, err)
	}

	return n > 0, nil
}

// Keys 用 SCAN 遍历，避免 KEYS 阻塞服务端；缓存清理按 counts:* 之类的前缀调用.
func (r *RedisKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	var keys []string

	iter := r.rdb.Scan(ctx, 0, pattern, redisScanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis kv: scan %s: %w", pattern, err)
	}

	return keys, nil
}

// Incr 原子自增；计数缓存的代际号依赖它在多实例间单调递增.
func (r *RedisKV) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis kv: incr %s: %w", key, err)
	}

	return n, nil
}

func (r *RedisKV) Close() error {
	return r.rdb.Close()
}

func init() {
	RegisterKVFactory(KVTypeRedis, NewRedisKV)
}
