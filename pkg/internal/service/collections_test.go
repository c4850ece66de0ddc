package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/model"
	"github.com/simholt/hyrax/pkg/internal/service"
	"github.com/simholt/hyrax/pkg/internal/storage/kv"
	"github.com/simholt/hyrax/pkg/internal/storage/search"
	"github.com/simholt/hyrax/pkg/internal/types"
	"github.com/simholt/hyrax/pkg/queue"
)

func testConfig() configs.AppConfig {
	var cfg configs.AppConfig

	cfg.Search.MaxRows = 100
	cfg.Search.ChildLinkField = linkField
	cfg.Search.CountsCacheTTL = time.Minute
	cfg.Search.IndexBatchSize = 2
	cfg.Events.Enabled = true
	cfg.Events.Index.Updated = true
	cfg.Events.Work.Ingested = true
	cfg.Events.Report.Generated = true
	cfg.S3.BucketName = "hyrax"

	return cfg
}

func newMemoryKV(t *testing.T) kv.KVStore {
	t.Helper()

	store, err := kv.NewMemoryKV(context.Background(), nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func countsDeps(t *testing.T, fs *fakeSearcher) service.Deps {
	t.Helper()

	db := newTestDB(t)
	seedFixture(t, db)

	return service.Deps{DB: db, Search: fs, KV: newMemoryKV(t), Config: testConfig()}
}

func TestCollectionsWithCounts(t *testing.T) {
	fs := &fakeSearcher{resp: response(
		[]any{"open", "2", "authn", "1"},
		doc([]string{"open"}, "f1"),
		doc([]string{"open", "authn"}, "f2", "f3"),
	)}
	svc := service.NewCollectionService(countsDeps(t, fs))

	items, err := svc.CollectionsWithCounts(context.Background(), types.Principal{User: "bob"}, "", "")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "authn", items[0].Collection.ID)
	assert.Equal(t, "Collection authn", items[0].Collection.Title)
	assert.Equal(t, 1, items[0].WorkCount)
	assert.Equal(t, 2, items[0].FileCount)

	assert.Equal(t, "open", items[1].Collection.ID)
	assert.Equal(t, 2, items[1].WorkCount)
	assert.Equal(t, 3, items[1].FileCount)

	require.Equal(t, 1, fs.calls())
	assert.Equal(t, []string{"{!terms f=" + linkField + "}authn,open"}, fs.queries[0].Filters)
}

func TestCollectionsWithCounts_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	fs := &fakeSearcher{resp: response([]any{"open", "1"}, doc([]string{"open"}, "f1"))}
	svc := service.NewCollectionService(countsDeps(t, fs))

	first, err := svc.CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
	require.NoError(t, err)

	second, err := svc.CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
	require.NoError(t, err)
	assert.Equal(t, 1, fs.calls(), "second call is served from cache")
	assert.Equal(t, first, second)

	// 不同身份使用不同的缓存键
	_, err = svc.CollectionsWithCounts(ctx, types.Principal{User: "bob"}, types.AccessRead, "")
	require.NoError(t, err)
	assert.Equal(t, 2, fs.calls())

	require.NoError(t, svc.InvalidateCounts(ctx))

	_, err = svc.CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
	require.NoError(t, err)
	assert.Equal(t, 3, fs.calls(), "bumped generation misses")
}

func TestCollectionsWithCounts_NoCacheWithoutTTL(t *testing.T) {
	ctx := context.Background()
	fs := &fakeSearcher{resp: response([]any{"open", "1"})}

	d := countsDeps(t, fs)
	d.Config.Search.CountsCacheTTL = 0
	svc := service.NewCollectionService(d)

	for range 3 {
		_, err := svc.CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
		require.NoError(t, err)
	}

	assert.Equal(t, 3, fs.calls())
}

func TestCollectionsWithCounts_BrokenCacheFallsThrough(t *testing.T) {
	fs := &fakeSearcher{resp: response([]any{"open", "4"})}

	d := countsDeps(t, fs)
	d.KV = brokenKV{}

	items, err := service.NewCollectionService(d).
		CollectionsWithCounts(context.Background(), types.Principal{}, types.AccessRead, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].WorkCount)
}

func TestCollectionsWithCounts_ResultIsACopy(t *testing.T) {
	ctx := context.Background()
	fs := &fakeSearcher{resp: response([]any{"open", "1"})}
	svc := service.NewCollectionService(countsDeps(t, fs))

	first, err := svc.CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
	require.NoError(t, err)

	first[0].WorkCount = 99

	second, err := svc.CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
	require.NoError(t, err)
	assert.Equal(t, 1, second[0].WorkCount)
}

func TestCollectionsWithCounts_FieldOverride(t *testing.T) {
	fs := &fakeSearcher{resp: &search.Response{FacetCounts: &search.FacetCounts{
		FacetFields: map[string][]any{"isPartOf_ssim": {"open", "3"}},
	}}}

	items, err := service.NewCollectionService(countsDeps(t, fs)).
		CollectionsWithCounts(context.Background(), types.Principal{}, types.AccessRead, "isPartOf_ssim")
	require.NoError(t, err)
	assert.Equal(t, 3, items[0].WorkCount)
	assert.Equal(t, []string{"isPartOf_ssim"}, fs.queries[0].FacetFields)
}

func TestCollectionsWithCounts_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := service.NewCollectionService(countsDeps(t, &fakeSearcher{})).
		CollectionsWithCounts(ctx, types.Principal{}, "own", "")
	require.ErrorIs(t, err, service.ErrInvalidScope)

	_, err = service.NewCollectionService(service.Deps{Config: testConfig()}).
		CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
	require.ErrorIs(t, err, service.ErrNotConfigured)

	fs := &fakeSearcher{resp: response([]any{"open"})}
	_, err = service.NewCollectionService(countsDeps(t, fs)).
		CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
	require.ErrorIs(t, err, service.ErrMalformedResponse)
}

func TestCollectionService_Create(t *testing.T) {
	ctx := context.Background()
	w := &recordingWriter{}
	pub := newCapturePublisher()

	d := service.Deps{DB: newTestDB(t), Writer: w, Publisher: pub, Config: testConfig()}
	svc := service.NewCollectionService(d)

	col, err := svc.Create(ctx, types.Principal{User: "alice"}, types.CreateCollectionRequest{
		Title:  "Letters",
		Grants: []types.Grant{{Agent: "staff", AgentType: model.AgentGroup, Access: model.AccessRead}},
	})
	require.NoError(t, err)
	require.NotNil(t, col)

	assert.NotEmpty(t, col.ID)
	assert.Equal(t, "alice", col.Depositor)
	assert.Equal(t, model.VisibilityRestricted, col.Visibility)

	stored, err := service.NewCollectionStore(d.DB).Get(ctx, col.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Permissions, 1)

	docs := w.docs()
	require.Len(t, docs, 1)
	assert.Equal(t, col.ID, docs[0]["id"])
	assert.Equal(t, []string{"staff"}, docs[0]["read_access_group_ssim"])
	assert.Equal(t, 1, w.commits)

	msgs := pub.published(queue.TopicIndexUpdated)
	require.Len(t, msgs, 1)

	evt, err := queue.ParseIndexUpdated(msgs[0])
	require.NoError(t, err)
	assert.Equal(t, []string{col.ID}, evt.Payload.CollectionIDs)
}

func TestCollectionService_CreateKeepsRowWhenIndexFails(t *testing.T) {
	ctx := context.Background()
	d := service.Deps{DB: newTestDB(t), Writer: &recordingWriter{err: errKVDown}, Config: testConfig()}

	col, err := service.NewCollectionService(d).Create(ctx, types.Principal{User: "alice"},
		types.CreateCollectionRequest{Title: "Maps", Visibility: model.VisibilityOpen})
	require.Error(t, err)
	require.NotNil(t, col)

	_, err = service.NewCollectionStore(d.DB).Get(ctx, col.ID)
	require.NoError(t, err)
}

func TestCollectionService_CreateInvalidatesWithoutEvents(t *testing.T) {
	ctx := context.Background()
	fs := &fakeSearcher{resp: response([]any{"open", "1"})}

	d := countsDeps(t, fs)
	d.Writer = &recordingWriter{}
	d.Config.Events.Enabled = false
	svc := service.NewCollectionService(d)

	before, err := svc.CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
	require.NoError(t, err)

	col, err := svc.Create(ctx, types.Principal{User: "alice"},
		types.CreateCollectionRequest{Title: "Maps", Visibility: model.VisibilityOpen})
	require.NoError(t, err)

	after, err := svc.CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
	require.NoError(t, err)
	assert.Equal(t, 2, fs.calls(), "create bumps the generation directly")
	require.Len(t, after, len(before)+1)

	seen := make([]string, 0, len(after))
	for _, it := range after {
		seen = append(seen, it.Collection.ID)
	}

	assert.Contains(t, seen, col.ID)
}

// gatedSearcher 在 release 关闭前阻塞，用来让多个调用合并到同一次计算.
type gatedSearcher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	resp    *search.Response
}

func (g *gatedSearcher) Search(ctx context.Context, _ *search.Query) (*search.Response, error) {
	g.once.Do(func() { close(g.entered) })

	select {
	case <-g.release:
		return g.resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCollectionsWithCounts_CanceledCallerDoesNotFailOthers(t *testing.T) {
	gs := &gatedSearcher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		resp:    response([]any{"open", "3"}),
	}

	d := countsDeps(t, nil)
	d.Search = gs
	svc := service.NewCollectionService(d)

	type result struct {
		items []types.EnrichedResult
		err   error
	}

	call := func(ctx context.Context) <-chan result {
		out := make(chan result, 1)

		go func() {
			items, err := svc.CollectionsWithCounts(ctx, types.Principal{}, types.AccessRead, "")
			out <- result{items, err}
		}()

		return out
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := call(firstCtx)
	<-gs.entered

	second := call(context.Background())
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	require.ErrorIs(t, (<-first).err, context.Canceled)

	close(gs.release)

	got := <-second
	require.NoError(t, got.err)
	require.NotEmpty(t, got.items)
}
