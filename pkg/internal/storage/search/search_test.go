package search_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/storage/search"
)

func newClient(t *testing.T, h http.HandlerFunc, mutate ...func(*configs.SearchConfig)) *search.Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := configs.SearchConfig{
		URL:     srv.URL + "/solr",
		Core:    "hydra",
		Timeout: time.Second,
	}

	for _, m := range mutate {
		m(&cfg)
	}

	c, err := search.New(cfg)
	require.NoError(t, err)

	return c
}

func TestQueryValues(t *testing.T) {
	q := &search.Query{
		Filters:       []string{search.TermsFilter("member_of_collection_ids_ssim", []string{"a", "b"})},
		Fields:        []string{"id", "file_set_ids_ssim"},
		Rows:          50,
		FacetFields:   []string{"member_of_collection_ids_ssim"},
		FacetLimit:    -1,
		FacetMinCount: 1,
	}

	v := q.Values()

	assert.Equal(t, "*:*", v.Get("q"))
	assert.Equal(t, "{!terms f=member_of_collection_ids_ssim}a,b", v.Get("fq"))
	assert.Equal(t, "id,file_set_ids_ssim", v.Get("fl"))
	assert.Equal(t, "50", v.Get("rows"))
	assert.Equal(t, "true", v.Get("facet"))
	assert.Equal(t, "-1", v.Get("facet.limit"))
	assert.Equal(t, "1", v.Get("facet.mincount"))
	assert.Equal(t, "json", v.Get("wt"))
	assert.Equal(t, "flat", v.Get("json.nl"))
	assert.Empty(t, v.Get("start"))
}

func TestTermsFilter_Separator(t *testing.T) {
	const f = "member_of_collection_ids_ssim"

	assert.Equal(t, "{!terms f="+f+"}a,b", search.TermsFilter(f, []string{"a", "b"}))
	assert.Equal(t, "{!terms f="+f+" separator='|'}a,1|b", search.TermsFilter(f, []string{"a,1", "b"}))
	assert.Equal(t, "{!terms f="+f+" separator=';'}a,1;b|2", search.TermsFilter(f, []string{"a,1", "b|2"}))
}

func TestSearch_DecodesFacetsAndDocs(t *testing.T) {
	var got url.Values

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/solr/hydra/select", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"responseHeader": {"status": 0, "QTime": 3},
			"response": {"numFound": 2, "start": 0, "docs": [
				{"id": "w1", "member_of_collection_ids_ssim": ["c1"], "file_set_ids_ssim": ["f1", "f2"]},
				{"id": "w2", "member_of_collection_ids_ssim": ["c1", "c2"]}
			]},
			"facet_counts": {"facet_fields": {"member_of_collection_ids_ssim": ["c1", 2, "c2", 1]}}
		}`)
	})

	resp, err := c.Search(context.Background(), &search.Query{
		Filters:     []string{"{!terms f=member_of_collection_ids_ssim}c1,c2"},
		Rows:        10,
		FacetFields: []string{"member_of_collection_ids_ssim"},
		FacetLimit:  -1,
	})
	require.NoError(t, err)

	assert.Equal(t, "{!terms f=member_of_collection_ids_ssim}c1,c2", got.Get("fq"))
	assert.Equal(t, int64(2), resp.Result.NumFound)
	require.Len(t, resp.Result.Docs, 2)
	require.NotNil(t, resp.FacetCounts)

	flat := resp.FacetCounts.FacetFields["member_of_collection_ids_ssim"]
	require.Len(t, flat, 4)
	assert.Equal(t, "c1", flat[0])
	assert.Equal(t, json.Number("2"), flat[1], "counts keep their JSON number form")
}

func TestSearch_Non2xxIsUnavailable(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "core not loaded", http.StatusServiceUnavailable)
	})

	_, err := c.Search(context.Background(), &search.Query{})
	require.ErrorIs(t, err, search.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "core not loaded")
}

func TestSearch_UndecodableBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>proxy error</html>")
	})

	_, err := c.Search(context.Background(), &search.Query{})
	require.ErrorIs(t, err, search.ErrBadResponse)
}

func TestSearch_Timeout(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, func(cfg *configs.SearchConfig) { cfg.Timeout = 50 * time.Millisecond })

	_, err := c.Search(context.Background(), &search.Query{})
	require.ErrorIs(t, err, search.ErrServiceUnavailable)
}

func TestSearch_BreakerOpens(t *testing.T) {
	var hits atomic.Int32

	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, func(cfg *configs.SearchConfig) {
		cfg.BreakerEnabled = true
		cfg.BreakerMinRequests = 2
		cfg.BreakerFailureRate = 0.5
		cfg.BreakerOpenTimeout = time.Minute
	})

	for range 5 {
		_, err := c.Search(context.Background(), &search.Query{})
		require.ErrorIs(t, err, search.ErrServiceUnavailable)
	}

	assert.Equal(t, int32(2), hits.Load(), "open breaker short-circuits further requests")
}

func TestAddAndCommit(t *testing.T) {
	var (
		commits atomic.Int32
		docs    []map[string]any
	)

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/solr/hydra/update", r.URL.Path)

		if r.URL.Query().Get("commit") == "true" {
			commits.Add(1)
		}

		var batch []map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		docs = append(docs, batch...)

		_, _ = io.WriteString(w, `{"responseHeader":{"status":0}}`)
	})

	ctx := context.Background()

	require.NoError(t, c.Add(ctx, nil, false), "empty add without commit is a no-op")
	require.NoError(t, c.Add(ctx, []search.Document{{"id": "w1"}, {"id": "w2"}}, false))
	require.NoError(t, c.Commit(ctx))

	assert.Len(t, docs, 2)
	assert.Equal(t, int32(1), commits.Load())
}

func TestPing(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/solr/hydra/admin/ping" {
			http.NotFound(w, r)
			return
		}

		_, _ = io.WriteString(w, `{"status":"OK"}`)
	})

	require.NoError(t, c.Ping(context.Background()))
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := search.New(configs.SearchConfig{URL: "not a url", Core: "hydra"})
	require.Error(t, err)
}
