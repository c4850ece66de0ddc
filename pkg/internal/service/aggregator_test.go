package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/model"
	"github.com/simholt/hyrax/pkg/internal/service"
	"github.com/simholt/hyrax/pkg/internal/storage/search"
	"github.com/simholt/hyrax/pkg/internal/types"
)

const linkField = configs.DefaultChildLinkField

// fakeSearcher 返回固定响应并记录收到的查询.
type fakeSearcher struct {
	mu      sync.Mutex
	resp    *search.Response
	err     error
	queries []*search.Query
}

func (f *fakeSearcher) Search(_ context.Context, q *search.Query) (*search.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, q)

	if f.err != nil {
		return nil, f.err
	}

	return f.resp, nil
}

func (f *fakeSearcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.queries)
}

func parents(ids ...string) []types.ParentRecord {
	out := make([]types.ParentRecord, 0, len(ids))
	for i, id := range ids {
		out = append(out, types.ParentRecord{
			ID:           id,
			Title:        "Collection " + id,
			DateModified: time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
		})
	}

	return out
}

func doc(parentIDs []string, fileIDs ...string) map[string]any {
	d := map[string]any{}

	if parentIDs != nil {
		ps := make([]any, 0, len(parentIDs))
		for _, p := range parentIDs {
			ps = append(ps, p)
		}

		d[linkField] = ps
	}

	if fileIDs != nil {
		fs := make([]any, 0, len(fileIDs))
		for _, f := range fileIDs {
			fs = append(fs, f)
		}

		d[model.FileSetIDsField] = fs
	}

	return d
}

func response(facet []any, docs ...map[string]any) *search.Response {
	return &search.Response{
		Result: search.ResultSet{NumFound: int64(len(docs)), Docs: docs},
		FacetCounts: &search.FacetCounts{
			FacetFields: map[string][]any{linkField: facet},
		},
	}
}

func TestComputeEnrichedCounts_FacetExample(t *testing.T) {
	fs := &fakeSearcher{resp: response(
		[]any{"colA", "5", "colB", "3"},
		doc([]string{"colA"}, "f1", "f2"),
		doc([]string{"colA", "colB"}, "f3"),
		doc([]string{"colB"}),
	)}

	got, err := service.NewAggregator(fs, 100).ComputeEnrichedCounts(context.Background(), parents("colA", "colB", "colC"), "")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "colA", got[0].Collection.ID)
	assert.Equal(t, 5, got[0].WorkCount)
	assert.Equal(t, 3, got[0].FileCount)

	assert.Equal(t, "colB", got[1].Collection.ID)
	assert.Equal(t, 3, got[1].WorkCount)
	assert.Equal(t, 1, got[1].FileCount)

	assert.Equal(t, "colC", got[2].Collection.ID)
	assert.Zero(t, got[2].WorkCount)
	assert.Zero(t, got[2].FileCount)

	for _, r := range got {
		assert.Nil(t, r.Updated)
	}
}

func TestComputeEnrichedCounts_PreservesOrderAndLength(t *testing.T) {
	ids := []string{"z", "a", "m", "b", "y"}
	fs := &fakeSearcher{resp: response([]any{"a", "1", "y", "2", "z", "3"})}

	in := parents(ids...)

	got, err := service.NewAggregator(fs, 100).ComputeEnrichedCounts(context.Background(), in, linkField)
	require.NoError(t, err)
	require.Len(t, got, len(in))

	for i := range in {
		assert.Equal(t, in[i], got[i].Collection, "position %d", i)
	}

	assert.Equal(t, []int{3, 1, 0, 0, 2}, []int{got[0].WorkCount, got[1].WorkCount, got[2].WorkCount, got[3].WorkCount, got[4].WorkCount})
}

func TestComputeEnrichedCounts_MultiMembershipNotDivided(t *testing.T) {
	fs := &fakeSearcher{resp: response(
		[]any{"A", "1", "B", "1"},
		doc([]string{"A", "B"}, "f1", "f2", "f3"),
	)}

	got, err := service.NewAggregator(fs, 100).ComputeEnrichedCounts(context.Background(), parents("A", "B"), linkField)
	require.NoError(t, err)

	assert.Equal(t, 3, got[0].FileCount)
	assert.Equal(t, 3, got[1].FileCount)
}

func TestComputeEnrichedCounts_MissingFieldsAreEmpty(t *testing.T) {
	fs := &fakeSearcher{resp: response(
		[]any{"A", "2"},
		doc([]string{"A"}), // 没有文件字段
		doc(nil, "f1"),     // 没有成员字段
		map[string]any{linkField: "A", model.FileSetIDsField: "f9"}, // 单值字段
	)}

	got, err := service.NewAggregator(fs, 100).ComputeEnrichedCounts(context.Background(), parents("A"), linkField)
	require.NoError(t, err)

	assert.Equal(t, 2, got[0].WorkCount)
	assert.Equal(t, 1, got[0].FileCount)
}

func TestComputeEnrichedCounts_EmptyParents(t *testing.T) {
	fs := &fakeSearcher{err: errors.New("must not be called")}

	got, err := service.NewAggregator(fs, 100).ComputeEnrichedCounts(context.Background(), nil, linkField)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, fs.calls())
}

func TestComputeEnrichedCounts_SingleQuery(t *testing.T) {
	fs := &fakeSearcher{resp: response([]any{"a", "1"})}

	_, err := service.NewAggregator(fs, 250).ComputeEnrichedCounts(context.Background(), parents("a", "b", "c"), linkField)
	require.NoError(t, err)
	require.Equal(t, 1, fs.calls())

	q := fs.queries[0]
	assert.Equal(t, []string{"{!terms f=" + linkField + "}a,b,c"}, q.Filters)
	assert.Equal(t, []string{linkField}, q.FacetFields)
	assert.Equal(t, -1, q.FacetLimit)
	assert.Equal(t, 1, q.FacetMinCount)
	assert.Equal(t, 250, q.Rows)
	assert.ElementsMatch(t, []string{linkField, model.FileSetIDsField}, q.Fields)
}

func TestComputeEnrichedCounts_DefaultField(t *testing.T) {
	fs := &fakeSearcher{resp: response(nil)}

	_, err := service.NewAggregator(fs, 0).ComputeEnrichedCounts(context.Background(), parents("a"), "")
	require.NoError(t, err)
	require.Equal(t, 1, fs.calls())

	assert.Equal(t, []string{configs.DefaultChildLinkField}, fs.queries[0].FacetFields)
	assert.Equal(t, configs.DefaultSearchMaxRows, fs.queries[0].Rows)
}

func TestComputeEnrichedCounts_CountForms(t *testing.T) {
	fs := &fakeSearcher{resp: response([]any{"a", json.Number("4"), "b", float64(2), "c", " 7 "})}

	got, err := service.NewAggregator(fs, 100).ComputeEnrichedCounts(context.Background(), parents("a", "b", "c"), linkField)
	require.NoError(t, err)

	assert.Equal(t, 4, got[0].WorkCount)
	assert.Equal(t, 2, got[1].WorkCount)
	assert.Equal(t, 7, got[2].WorkCount)
}

func TestComputeEnrichedCounts_MalformedResponses(t *testing.T) {
	cases := map[string]*search.Response{
		"odd length facet": response([]any{"colA", "5", "colB"}),
		"non numeric":      response([]any{"colA", "five"}),
		"negative":         response([]any{"colA", "-1"}),
		"fractional":       response([]any{"colA", 1.5}),
		"non string value": response([]any{json.Number("1"), "5"}),
		"missing facets":   {Result: search.ResultSet{}},
		"missing field": {FacetCounts: &search.FacetCounts{
			FacetFields: map[string][]any{"other_ssim": {}},
		}},
		"bad member list": response([]any{"colA", "1"}, map[string]any{linkField: float64(3)}),
		"bad file list":   response([]any{"colA", "1"}, map[string]any{linkField: "colA", model.FileSetIDsField: []any{1}}),
	}

	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			fs := &fakeSearcher{resp: resp}

			got, err := service.NewAggregator(fs, 100).ComputeEnrichedCounts(context.Background(), parents("colA", "colB"), linkField)
			require.ErrorIs(t, err, service.ErrMalformedResponse)
			assert.Nil(t, got)
		})
	}
}

func TestComputeEnrichedCounts_Truncated(t *testing.T) {
	resp := response([]any{"colA", "3"}, doc([]string{"colA"}, "f1"))
	resp.Result.NumFound = 3

	_, err := service.NewAggregator(&fakeSearcher{resp: resp}, 1).
		ComputeEnrichedCounts(context.Background(), parents("colA"), linkField)
	require.ErrorIs(t, err, service.ErrTruncatedResponse)
	require.ErrorIs(t, err, service.ErrMalformedResponse)
}

func TestComputeEnrichedCounts_ServiceUnavailable(t *testing.T) {
	fs := &fakeSearcher{err: fmt.Errorf("%w: connection refused", search.ErrServiceUnavailable)}

	_, err := service.NewAggregator(fs, 100).ComputeEnrichedCounts(context.Background(), parents("colA"), linkField)
	require.ErrorIs(t, err, search.ErrServiceUnavailable)
	assert.Equal(t, 1, fs.calls(), "no retry")
}

func TestComputeEnrichedCounts_ObjectShapedFacetIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"response":{"numFound":1,"docs":[]},"facet_counts":{"facet_fields":{%q:{"colA":5}}}}`, linkField)
	}))
	t.Cleanup(srv.Close)

	client, err := search.New(configs.SearchConfig{URL: srv.URL + "/solr", Core: "hydra", Timeout: time.Second})
	require.NoError(t, err)

	_, err = service.NewAggregator(client, 100).ComputeEnrichedCounts(context.Background(), parents("colA"), linkField)
	require.ErrorIs(t, err, service.ErrMalformedResponse)
	require.ErrorIs(t, err, search.ErrBadResponse)
	assert.NotErrorIs(t, err, search.ErrServiceUnavailable)
}

func TestComputeEnrichedCounts_Idempotent(t *testing.T) {
	fs := &fakeSearcher{resp: response(
		[]any{"colA", "2", "colB", "1"},
		doc([]string{"colA"}, "f1"),
		doc([]string{"colA", "colB"}, "f2", "f3"),
	)}
	agg := service.NewAggregator(fs, 100)
	in := parents("colA", "colB", "colC")

	first, err := agg.ComputeEnrichedCounts(context.Background(), in, linkField)
	require.NoError(t, err)

	second, err := agg.ComputeEnrichedCounts(context.Background(), in, linkField)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeEnrichedCounts_Concurrent(t *testing.T) {
	fs := &fakeSearcher{resp: response([]any{"colA", "2"}, doc([]string{"colA"}, "f1"), doc([]string{"colA"}))}
	agg := service.NewAggregator(fs, 100)

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			got, err := agg.ComputeEnrichedCounts(context.Background(), parents("colA"), linkField)
			assert.NoError(t, err)
			assert.Equal(t, 2, got[0].WorkCount)
			assert.Equal(t, 1, got[0].FileCount)
		}()
	}

	wg.Wait()
	assert.Equal(t, 16, fs.calls())
}
