package kv_test

import (
	"context"
	crand "crypto/rand"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/storage/kv"
)

func newGroupcache(t testing.TB, name string) kv.KVStore {
	t.Helper()

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, &configs.GroupcacheKVConfig{
		Name:       name,
		CacheBytes: 1 << 20,
	})
	require.NoError(t, err)

	return store
}

// TestMemoryKV_TTL 过期键读取返回 ErrKeyNotFound.
func TestMemoryKV_TTL(t *testing.T) {
	ctx := context.Background()
	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	require.NoError(t, store.Set(ctx, "long", []byte("v"), 0))

	got, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	time.Sleep(40 * time.Millisecond)

	_, err = store.Get(ctx, "short")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)

	ok, err := store.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := store.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"long"}, keys)
}

// TestKeys_GlobPattern 所有本地后端都按 glob 过滤键.
func TestKeys_GlobPattern(t *testing.T) {
	ctx := context.Background()
	mem, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	stores := map[string]kv.KVStore{
		"memory":     mem,
		"groupcache": newGroupcache(t, "test-glob"),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"counts:1:a", "counts:1:b", "counts:generation", "other"} {
				require.NoError(t, store.Set(ctx, k, []byte("x"), 0))
			}

			keys, err := store.Keys(ctx, "counts:1:*")
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{"counts:1:a", "counts:1:b"}, keys)

			all, err := store.Keys(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})
	}
}

// TestIncr 原子自增与读改写回退得到相同序列.
func TestIncr(t *testing.T) {
	ctx := context.Background()
	mem, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	for name, store := range map[string]kv.KVStore{
		"memory":     mem,
		"groupcache": newGroupcache(t, "test-incr"),
	} {
		t.Run(name, func(t *testing.T) {
			for want := int64(1); want <= 3; want++ {
				got, err := kv.Incr(ctx, store, "gen")
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			raw, err := store.Get(ctx, "gen")
			require.NoError(t, err)
			assert.Equal(t, "3", string(raw))
		})
	}
}

// TestMemoryKV_IncrConcurrent 并发自增不丢失.
func TestMemoryKV_IncrConcurrent(t *testing.T) {
	ctx := context.Background()
	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = kv.Incr(ctx, store, "n")
		}()
	}

	wg.Wait()

	raw, err := store.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "50", string(raw))
}

// TestIncr_NonInteger 非整数值返回错误.
func TestIncr_NonInteger(t *testing.T) {
	ctx := context.Background()
	store := newGroupcache(t, "test-incr-bad")

	require.NoError(t, store.Set(ctx, "gen", []byte("abc"), 0))

	_, err := kv.Incr(ctx, store, "gen")
	require.Error(t, err)
}

// TestNew_DefaultsToMemory 未配置类型时使用内存后端.
func TestNew_DefaultsToMemory(t *testing.T) {
	c, err := kv.New(context.Background(), configs.KVConfig{})
	require.NoError(t, err)
	assert.Equal(t, kv.KVTypeMemory, c.Type())

	n, err := kv.Incr(context.Background(), c, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// TestNewGroupcacheKV_DuplicateName 组名重复注册返回错误.
func TestNewGroupcacheKV_DuplicateName(t *testing.T) {
	_ = newGroupcache(t, "test-dup")

	_, err := kv.NewKVStore(context.Background(), kv.KVTypeGroupcache, &configs.GroupcacheKVConfig{
		Name:       "test-dup",
		CacheBytes: 1 << 20,
	})
	require.Error(t, err)
}

func TestNewKVStore_Unsupported(t *testing.T) {
	_, err := kv.NewKVStore(context.Background(), kv.KVType("etcd"), nil)
	require.Error(t, err)
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	benchKV(b, "memory", store)
	benchKVParallel(b, "memory", store)
	_ = store.Close()
}

func BenchmarkGroupcacheKV(b *testing.B) {
	store := newGroupcache(b, "bench-groupcache")

	benchKV(b, "groupcache", store)
	benchKVParallel(b, "groupcache", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_REDIS_BENCH=1 and REDIS_ADDR set (default 127.0.0.1:6379).
func BenchmarkRedisKV(b *testing.B) {
	if os.Getenv("ENABLE_REDIS_BENCH") == "" {
		b.Skip("set ENABLE_REDIS_BENCH=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeRedis, &configs.RedisKVConfig{Addr: addr})
	if err != nil {
		b.Skipf("redis not available: %v", err)
		return
	}

	benchKV(b, "redis", store)
	benchKVParallel(b, "redis", store)
	_ = store.Close()
}

// randBytes returns n random bytes.
func randBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		mr := mrand.New(mrand.NewSource(42))
		for i := range b {
			b[i] = byte(mr.Intn(256))
		}
	}

	return b
}

// benchKV 执行基本的 Set/Get/Delete 基准测试.
func benchKV(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()

	for _, size := range []int{32, 1024, 64 * 1024} {
		payload := randBytes(size)
		for _, ttl := range []time.Duration{0, 5 * time.Second} {
			b.Run(fmt.Sprintf("%s/size=%d/ttl=%s", name, size, ttl), func(b *testing.B) {
				b.ReportAllocs()

				for i := 0; b.Loop(); i++ {
					key := fmt.Sprintf("bench-%s-%d", name, i)
					if err := store.Set(ctx, key, payload, ttl); err != nil {
						b.Fatalf("set failed: %v", err)
					}

					if _, err := store.Get(ctx, key); err != nil {
						b.Fatalf("get failed: %v", err)
					}

					if err := store.Delete(ctx, key); err != nil {
						b.Fatalf("delete failed: %v", err)
					}
				}
			})
		}
	}
}

// benchKVParallel 执行并行的 Set/Get/Delete 基准测试.
func benchKVParallel(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	payload := randBytes(1024)

	var ctr uint64

	b.Run(name+"/parallel", func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				key := fmt.Sprintf("bench-%s-p-%d", name, atomic.AddUint64(&ctr, 1))
				if err := store.Set(ctx, key, payload, 0); err != nil {
					b.Errorf("set failed: %v", err)
					return
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Errorf("get failed: %v", err)
					return
				}

				_ = store.Delete(ctx, key)
			}
		})
	})
}
