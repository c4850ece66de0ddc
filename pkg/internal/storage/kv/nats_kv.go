package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/simholt/hyrax/pkg/configs"
)

// NATSKV 基于 NATS JetStream KV 的实现，TTL 通过值包装惰性判断.
type NATSKV struct {
	kv     nats.KeyValue
	bucket string
	conn   *nats.Conn
}

// NewNATSKV 创建 NATS KV 实例.
func NewNATSKV(_ context.Context, config any) (KVStore, error) {
	natsConfig, ok := config.(*configs.NATSKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid NATS config")
	}

	opts := []nats.Option{nats.Name("hyrax-kv")}
	if natsConfig.User != "" {
		opts = append(opts, nats.UserInfo(natsConfig.User, natsConfig.Password))
	}

	nc, err := nats.Connect(natsConfig.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(natsConfig.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: natsConfig.Bucket, TTL: natsConfig.MaxAge})
	}

	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create/get KV bucket %s: %w", natsConfig.Bucket, err)
	}

	return &NATSKV{kv: kv, bucket: natsConfig.Bucket, conn: nc}, nil
}

// live 读取并解包条目，过期条目被惰性删除.
func (n *NATSKV) live(key string) ([]byte, bool, error) {
	entry, err := n.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to get key: %w", err)
	}

	val, alive, err := open(entry.Value(), time.Now())
	if err != nil {
		return nil, false, err
	}

	if !alive {
		_ = n.kv.Delete(key)
		return nil, false, nil
	}

	return val, true, nil
}

// Get 获取键的值.
func (n *NATSKV) Get(_ context.Context, key string) ([]byte, error) {
	val, ok, err := n.live(key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, notFound(key)
	}

	return val, nil
}

// Set 设置键的值.
func (n *NATSKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := seal(value, ttl, time.Now())
	if err != nil {
		return err
	}

	if _, err := n.kv.Put(key, encoded); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

// Delete 删除键.
func (n *NATSKV) Delete(_ context.Context, key string) error {
	if err := n.kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// Exists 检查键是否存在.
func (n *NATSKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok, err := n.live(key)

	return ok, err
}

// Keys 获取匹配模式的键.
func (n *NATSKV) Keys(_ context.Context, pattern string) ([]string, error) {
	keys, err := n.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get keys: %w", err)
	}

	result := make([]string, 0, len(keys))

	for _, key := range keys {
		if !matchPattern(pattern, key) {
			continue
		}

		if _, ok, err := n.live(key); err != nil || !ok {
			continue
		}

		result = append(result, key)
	}

	return result, nil
}

// natsIncrRetries CAS 冲突时的重试上限.
const natsIncrRetries = 16

// Incr 基于修订号的比较并交换自增，多副本同时自增不会丢失.
func (n *NATSKV) Incr(ctx context.Context, key string) (int64, error) {
	for range natsIncrRetries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		var (
			cur int64
			rev uint64
		)

		entry, err := n.kv.Get(key)

		switch {
		case errors.Is(err, nats.ErrKeyNotFound):
		case err != nil:
			return 0, fmt.Errorf("failed to get key: %w", err)
		default:
			rev = entry.Revision()

			val, alive, err := open(entry.Value(), time.Now())
			if err != nil {
				return 0, err
			}

			if alive {
				if cur, err = strconv.ParseInt(string(val), 10, 64); err != nil {
					return 0, fmt.Errorf("value of %s is not an integer: %w", key, err)
				}
			}
		}

		next := cur + 1

		encoded, err := seal([]byte(strconv.FormatInt(next, 10)), 0, time.Now())
		if err != nil {
			return 0, err
		}

		if rev == 0 {
			_, err = n.kv.Create(key, encoded)
		} else {
			_, err = n.kv.Update(key, encoded, rev)
		}

		if err == nil {
			return next, nil
		}

		if !errors.Is(err, nats.ErrKeyExists) && !isWrongSequence(err) {
			return 0, fmt.Errorf("failed to update key: %w", err)
		}
	}

	return 0, fmt.Errorf("incr %s: too many concurrent updates", key)
}

// isWrongSequence Update 修订号不匹配时服务端返回 JetStream 错误码 10071.
func isWrongSequence(err error) bool {
	var apiErr *nats.APIError

	return errors.As(err, &apiErr) && apiErr.ErrorCode == nats.JSErrCodeStreamWrongLastSequence
}

// Close 关闭 NATS 连接.
func (n *NATSKV) Close() error {
	n.conn.Close()
	return nil
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
