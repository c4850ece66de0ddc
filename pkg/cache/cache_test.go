package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/cache"
	"github.com/simholt/hyrax/pkg/internal/storage/kv"
)

type countsEntry struct {
	ID    string `json:"id"`
	Works int    `json:"works"`
	Files int    `json:"files"`
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return cache.NewCache(store)
}

func TestKey(t *testing.T) {
	a := cache.Key("counts", 1, "alice", "read", "")
	b := cache.Key("counts", 1, "alice", "read", "")
	c := cache.Key("counts", 2, "alice", "read", "")
	d := cache.Key("counts", 1, "alice", "edit", "")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Regexp(t, `^counts:1:[0-9a-f]+$`, a)

	// 分隔符避免 "ab"+"c" 与 "a"+"bc" 冲突
	assert.NotEqual(t, cache.Key("p", 0, "ab", "c"), cache.Key("p", 0, "a", "bc"))
}

func TestSetAndLookup(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	want := []countsEntry{{ID: "c1", Works: 3, Files: 7}, {ID: "c2"}}
	require.NoError(t, cache.Set(ctx, c, "k", want, time.Minute))

	got, ok, err := cache.Lookup[[]countsEntry](ctx, c, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	_, ok, err = cache.Lookup[[]countsEntry](ctx, c, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookup_UndecodableValue(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewMemoryKV(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", []byte("{not json"), 0))

	_, ok, err := cache.Lookup[countsEntry](ctx, cache.NewCache(store), "k")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestDeleteAndExists(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	require.NoError(t, cache.Set(ctx, c, "k", 1, 0))

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))

	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	calls := 0
	getter := func() (countsEntry, error) {
		calls++

		return countsEntry{ID: "c1", Works: calls}, nil
	}

	first, err := cache.GetOrSet(ctx, c, "k", getter, time.Minute)
	require.NoError(t, err)

	second, err := cache.GetOrSet(ctx, c, "k", getter, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestGetOrSet_ConcurrentMissesLoadOnce(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	var calls atomic.Int32

	release := make(chan struct{})
	getter := func() (countsEntry, error) {
		calls.Add(1)
		<-release

		return countsEntry{ID: "c1", Works: 7}, nil
	}

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			got, err := cache.GetOrSet(ctx, c, "k", getter, time.Minute)
			assert.NoError(t, err)
			assert.Equal(t, 7, got.Works)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrSet_GetterError(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	boom := errors.New("boom")

	_, err := cache.GetOrSet(ctx, c, "k", func() (int, error) { return 0, boom }, time.Minute)
	require.ErrorIs(t, err, boom)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "failed getter must not populate the cache")
}

func TestGenerationAndBump(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	gen, err := c.Generation(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	for i := int64(1); i <= 3; i++ {
		got, err := c.Bump(ctx, "gen")
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}

	gen, err = c.Generation(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(3), gen)
}

func TestBump_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = c.Bump(ctx, "gen")
		}()
	}

	wg.Wait()

	gen, err := c.Generation(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(20), gen)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	require.NoError(t, cache.Set(ctx, c, "counts:1:a", 1, 0))
	require.NoError(t, cache.Set(ctx, c, "counts:1:b", 2, 0))
	require.NoError(t, cache.Set(ctx, c, "other", 3, 0))

	require.NoError(t, c.Clear(ctx, "counts:*"))

	for key, want := range map[string]bool{"counts:1:a": false, "counts:1:b": false, "other": true} {
		ok, err := c.Exists(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, ok, key)
	}
}

func BenchmarkGetOrSet(b *testing.B) {
	ctx := context.Background()

	store, _ := kv.NewMemoryKV(ctx, nil)
	c := cache.NewCache(store)

	for i := 0; i < b.N; i++ {
		_, _ = cache.GetOrSet(ctx, c, "bench", func() (countsEntry, error) {
			return countsEntry{ID: "c1", Works: 1}, nil
		}, time.Minute)
	}
}
