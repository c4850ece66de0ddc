package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/model"
	"github.com/simholt/hyrax/pkg/internal/storage/search"
	"github.com/simholt/hyrax/pkg/internal/types"
	nlog "github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/metrics"
	"github.com/simholt/hyrax/pkg/tracing"
)

var (
	// ErrMalformedResponse 检索响应的分面或文档字段形态不对，属于数据完整性错误.
	ErrMalformedResponse = errors.New("malformed search response")
	// ErrTruncatedResponse 命中数多于返回的文档数，文件计数会偏小.
	ErrTruncatedResponse = fmt.Errorf("%w: truncated document list", ErrMalformedResponse)
)

// Searcher 聚合器依赖的检索能力，*search.Client 实现了它.
type Searcher interface {
	Search(ctx context.Context, q *search.Query) (*search.Response, error)
}

// Aggregator 为一组集合计算作品数与文件数.
// 不持有可变状态，可被多个请求并发使用.
type Aggregator struct {
	searcher Searcher
	maxRows  int
}

// NewAggregator 创建聚合器，maxRows 为单次查询返回的最大文档数.
func NewAggregator(searcher Searcher, maxRows int) *Aggregator {
	if maxRows <= 0 {
		maxRows = configs.DefaultSearchMaxRows
	}

	return &Aggregator{searcher: searcher, maxRows: maxRows}
}

// ComputeEnrichedCounts 用一次分面查询给每个父记录补上作品数与文件数.
// 输出与输入一一对应且顺序相同；未命中的 ID 计数为 0.
func (a *Aggregator) ComputeEnrichedCounts(
	ctx context.Context, parents []types.ParentRecord, childLinkField string,
) ([]types.EnrichedResult, error) {
	if childLinkField == "" {
		childLinkField = configs.DefaultChildLinkField
	}

	if len(parents) == 0 {
		return []types.EnrichedResult{}, nil
	}

	ctx, span := tracing.StartSpan(ctx, "aggregator.compute_counts")
	defer span.End()

	span.SetAttributes(
		attribute.Int("aggregator.parents", len(parents)),
		attribute.String("aggregator.field", childLinkField),
	)

	start := time.Now()

	results, err := a.compute(ctx, parents, childLinkField)
	if err != nil {
		metrics.AggregationErrors.WithLabelValues(errorKind(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	metrics.AggregationDuration.Observe(time.Since(start).Seconds())

	return results, nil
}

func (a *Aggregator) compute(
	ctx context.Context, parents []types.ParentRecord, field string,
) ([]types.EnrichedResult, error) {
	ids := make([]string, 0, len(parents))
	for _, p := range parents {
		ids = append(ids, p.ID)
	}

	resp, err := a.searcher.Search(ctx, countsQuery(ids, field, a.maxRows))
	if errors.Is(err, search.ErrBadResponse) {
		return nil, fmt.Errorf("%w: count query: %w", ErrMalformedResponse, err)
	}

	if err != nil {
		return nil, fmt.Errorf("count query: %w", err)
	}

	workCounts, err := facetCounts(resp, field)
	if err != nil {
		return nil, err
	}

	fileCounts, err := fileCounts(resp, field)
	if err != nil {
		return nil, err
	}

	nlog.FromContext(ctx).Debug().
		Int("parents", len(parents)).
		Int64("num_found", resp.Result.NumFound).
		Int("faceted", len(workCounts)).
		Msg("computed collection counts")

	results := make([]types.EnrichedResult, 0, len(parents))
	for _, p := range parents {
		results = append(results, types.EnrichedResult{
			Collection: p,
			WorkCount:  workCounts[p.ID],
			FileCount:  fileCounts[p.ID],
		})
	}

	return results, nil
}

// countsQuery 一次查询同时取分面计数与逐文档的文件列表.
func countsQuery(ids []string, field string, rows int) *search.Query {
	return &search.Query{
		Q:             "*:*",
		Filters:       []string{search.TermsFilter(field, ids)},
		Fields:        []string{field, model.FileSetIDsField},
		Rows:          rows,
		FacetFields:   []string{field},
		FacetLimit:    -1,
		FacetMinCount: 1,
	}
}

// facetCounts 把 [值, 计数, 值, 计数, ...] 按位置配对.
func facetCounts(resp *search.Response, field string) (map[string]int, error) {
	if resp.FacetCounts == nil {
		return nil, fmt.Errorf("%w: missing facet_counts", ErrMalformedResponse)
	}

	flat, ok := resp.FacetCounts.FacetFields[field]
	if !ok {
		return nil, fmt.Errorf("%w: missing facet for field %s", ErrMalformedResponse, field)
	}

	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: facet %s has odd length %d", ErrMalformedResponse, field, len(flat))
	}

	counts := make(map[string]int, len(flat)/2)

	for i := 0; i < len(flat); i += 2 {
		value, ok := flat[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: facet value at %d is %T", ErrMalformedResponse, i, flat[i])
		}

		n, err := parseCount(flat[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: facet count for %q: %v", ErrMalformedResponse, value, err)
		}

		counts[value] += n
	}

	return counts, nil
}

// fileCounts 文档的文件数累加到它列出的每一个父记录上，不去重也不均分.
func fileCounts(resp *search.Response, field string) (map[string]int, error) {
	if int64(len(resp.Result.Docs)) < resp.Result.NumFound-resp.Result.Start {
		return nil, fmt.Errorf("%w: %d of %d documents returned",
			ErrTruncatedResponse, len(resp.Result.Docs), resp.Result.NumFound)
	}

	counts := make(map[string]int)

	for i, doc := range resp.Result.Docs {
		parents, err := stringList(doc[field])
		if err != nil {
			return nil, fmt.Errorf("%w: document %d field %s: %v", ErrMalformedResponse, i, field, err)
		}

		files, err := stringList(doc[model.FileSetIDsField])
		if err != nil {
			return nil, fmt.Errorf("%w: document %d field %s: %v", ErrMalformedResponse, i, model.FileSetIDsField, err)
		}

		for _, p := range parents {
			counts[p] += len(files)
		}
	}

	return counts, nil
}

// parseCount 接受非负整数形式的 JSON 数字或数字字符串.
func parseCount(v any) (int, error) {
	var s string

	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("non-integer count %v", x)
		}

		s = strconv.FormatFloat(x, 'f', 0, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("non-numeric count %q", s)
	}

	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}

	return n, nil
}

// stringList 读取多值字段；缺失为空，单个字符串视为一个值.
func stringList(v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{x}, nil
	case []string:
		return x, nil
	case []any:
		out := make([]string, 0, len(x))

		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element of type %T", item)
			}

			out = append(out, s)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrTruncatedResponse):
		return "truncated"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "unavailable"
	}
}
