package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/simholt/hyrax/pkg/configs"
)

var (
	// groupcache 的组名与 HTTPPool 均为进程级注册.
	gcGroupsMu sync.Mutex
	gcGroups   = make(map[string]struct{})
	gcPoolOnce sync.Once
	gcPool     *groupcache.HTTPPool
)

// GroupcacheKV 以本地 map 为权威存储，本地未命中时通过 groupcache 向对等节点读取.
// 从对等节点读到的值会留在 groupcache 的 LRU 中直到被淘汰.
type GroupcacheKV struct {
	group *groupcache.Group
	peers bool
	data  map[string][]byte // 值带 TTL 包装
	mu    sync.RWMutex
}

// groupcacheGetter 处理对等节点发来的读取请求.
type groupcacheGetter struct {
	kv *GroupcacheKV
}

func (g *groupcacheGetter) Get(_ context.Context, key string, dest groupcache.Sink) error {
	val, ok, err := g.kv.local(key)
	if err != nil {
		return err
	}

	if !ok {
		return notFound(key)
	}

	if err := dest.SetBytes(val); err != nil {
		return fmt.Errorf("failed to set bytes to sink: %w", err)
	}

	return nil
}

// NewGroupcacheKV 创建 Groupcache KV 实例.
func NewGroupcacheKV(_ context.Context, config any) (KVStore, error) {
	gcConfig, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid Groupcache config")
	}

	gcGroupsMu.Lock()
	defer gcGroupsMu.Unlock()

	if _, dup := gcGroups[gcConfig.Name]; dup {
		return nil, fmt.Errorf("groupcache group %q already registered", gcConfig.Name)
	}

	kv := &GroupcacheKV{data: make(map[string][]byte)}
	kv.group = groupcache.NewGroup(gcConfig.Name, gcConfig.CacheBytes, &groupcacheGetter{kv: kv})
	gcGroups[gcConfig.Name] = struct{}{}

	if len(gcConfig.Peers) > 0 {
		gcPoolOnce.Do(func() {
			gcPool = groupcache.NewHTTPPoolOpts(gcConfig.Self, &groupcache.HTTPPoolOptions{})
		})
		gcPool.Set(gcConfig.Peers...)

		kv.peers = true
	}

	return kv, nil
}

func (g *GroupcacheKV) local(key string) ([]byte, bool, error) {
	g.mu.RLock()
	raw, ok := g.data[key]
	g.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	val, alive, err := open(raw, time.Now())
	if err != nil {
		return nil, false, err
	}

	if !alive {
		g.mu.Lock()
		delete(g.data, key)
		g.mu.Unlock()

		return nil, false, nil
	}

	return val, true, nil
}

// Get 获取键的值.
func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, ok, err := g.local(key)
	if err != nil {
		return nil, err
	}

	if ok {
		out := make([]byte, len(val))
		copy(out, val)

		return out, nil
	}

	if !g.peers {
		return nil, notFound(key)
	}

	var data []byte
	if err := g.group.Get(ctx, key, groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, notFound(key)
	}

	return data, nil
}

// Set 设置键的值.
func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := seal(value, ttl, time.Now())
	if err != nil {
		return err
	}

	stored := make([]byte, len(encoded))
	copy(stored, encoded)

	g.mu.Lock()
	g.data[key] = stored
	g.mu.Unlock()

	return nil
}

// Delete 删除键.
func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.data, key)
	g.mu.Unlock()

	return nil
}

// Exists 检查键是否存在（仅本地）.
func (g *GroupcacheKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok, err := g.local(key)

	return ok, err
}

// Keys 获取本地匹配模式的键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	g.mu.RLock()
	candidates := make([]string, 0, len(g.data))

	for key := range g.data {
		if matchPattern(pattern, key) {
			candidates = append(candidates, key)
		}
	}
	g.mu.RUnlock()

	keys := candidates[:0]

	for _, key := range candidates {
		if _, ok, err := g.local(key); err == nil && ok {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close 关闭缓存.
func (g *GroupcacheKV) Close() error {
	// Groupcache 没有显式的关闭方法
	return nil
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
