package kv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	expireAt time.Time // 零值表示不过期
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// MemoryKV 进程内 KV 实现，支持 TTL 与原子自增.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	now  func() time.Time
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(_ context.Context, _ any) (KVStore, error) {
	// 内存实现不需要特殊配置
	return &MemoryKV{data: make(map[string]memoryEntry), now: time.Now}, nil
}

// Get 获取键的值.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok || e.expired(m.now()) {
		return nil, notFound(key)
	}

	// 返回副本
	out := make([]byte, len(e.value))
	copy(out, e.value)

	return out, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: make([]byte, len(value))}
	copy(e.value, value)

	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	return ok && !e.expired(m.now()), nil
}

// Keys 获取匹配模式的键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))

	for k, e := range m.data {
		if e.expired(now) || !matchPattern(pattern, k) {
			continue
		}

		keys = append(keys, k)
	}

	return keys, nil
}

// Incr 原子自增，过期或不存在的键从 0 开始.
func (m *MemoryKV) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cur int64

	if e, ok := m.data[key]; ok && !e.expired(m.now()) {
		v, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value of %s is not an integer: %w", key, err)
		}

		cur = v
	}

	cur++
	m.data[key] = memoryEntry{value: []byte(strconv.FormatInt(cur, 10))}

	return cur, nil
}

// Close 关闭存储（内存实现无需操作）.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
