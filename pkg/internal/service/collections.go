package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/simholt/hyrax/pkg/cache"
	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/model"
	"github.com/simholt/hyrax/pkg/internal/storage/kv"
	"github.com/simholt/hyrax/pkg/internal/types"
	nlog "github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/metrics"
)

// ErrInvalidScope 访问范围不是 read 或 edit.
var ErrInvalidScope = errors.New("invalid access scope")

const (
	// CountsGenerationKey 计数缓存代数，索引更新后自增.
	CountsGenerationKey = "counts:generation"
	countsKeyPrefix     = "counts"
)

// countsFlight 合并跨请求的相同计数计算.
var countsFlight singleflight.Group

// CollectionService 面向调用方的集合计数入口.
type CollectionService struct {
	deps  Deps
	store *CollectionStore
	agg   *Aggregator
	cache *cache.Cache
	ttl   time.Duration
}

// NewCollectionService 创建服务；KV 可用且 counts_cache_ttl > 0 时启用缓存.
func NewCollectionService(d Deps) *CollectionService {
	s := &CollectionService{deps: d, ttl: d.Config.Search.CountsCacheTTL}

	if d.DB != nil {
		s.store = NewCollectionStore(d.DB)
	}

	if d.Search != nil {
		s.agg = NewAggregator(d.Search, d.Config.Search.MaxRows)
	}

	if d.KV != nil && s.ttl > 0 {
		s.cache = cache.NewCache(d.KV)
	}

	return s
}

// CollectionsWithCounts 列出可访问集合并补上作品数与文件数.
// scope 为空视为 read；field 为空使用配置的成员字段.
func (s *CollectionService) CollectionsWithCounts(
	ctx context.Context, p types.Principal, scope types.AccessScope, field string,
) ([]types.EnrichedResult, error) {
	scope, ok := types.ParseAccessScope(string(scope))
	if !ok {
		return nil, ErrInvalidScope
	}

	if s.store == nil || s.agg == nil {
		return nil, ErrNotConfigured
	}

	if field == "" {
		field = s.deps.Config.Search.GetChildLinkField()
	}

	compute := func(ctx context.Context) ([]types.EnrichedResult, error) {
		cols, err := s.store.ListAccessible(ctx, p, scope)
		if err != nil {
			return nil, err
		}

		return s.agg.ComputeEnrichedCounts(ctx, toParents(cols), field)
	}

	gen := s.generation(ctx)
	key := countsKey(gen, p, scope, field)

	if s.cache != nil && gen >= 0 {
		items, hit, err := cache.Lookup[[]types.EnrichedResult](ctx, s.cache, key)

		switch {
		case err != nil:
			metrics.CountsCacheLookups.WithLabelValues("error").Inc()
			nlog.FromContext(ctx).Warn().Err(err).Msg("counts cache lookup failed")
		case hit:
			metrics.CountsCacheLookups.WithLabelValues("hit").Inc()

			return items, nil
		default:
			metrics.CountsCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	// 合并后的计算不跟随任一调用方取消，只受 flightTimeout 约束
	ch := countsFlight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.flightTimeout())
		defer cancel()

		items, err := compute(fctx)
		if err != nil {
			return nil, err
		}

		if s.cache != nil && gen >= 0 {
			if err := cache.Set(fctx, s.cache, key, items, s.ttl); err != nil {
				nlog.FromContext(fctx).Warn().Err(err).Msg("counts cache store failed")
			}
		}

		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}

		return slices.Clone(r.Val.([]types.EnrichedResult)), nil
	}
}

// flightTimeout 覆盖一次集合列表查询与一次检索请求.
func (s *CollectionService) flightTimeout() time.Duration {
	t := s.deps.Config.Search.Timeout
	if t <= 0 {
		t = configs.DefaultSearchTimeout
	}

	return 2 * t
}

// generation 返回当前缓存代数；未启用缓存为 0，读取失败为 -1（跳过缓存）.
func (s *CollectionService) generation(ctx context.Context) int64 {
	if s.cache == nil {
		return 0
	}

	gen, err := s.cache.Generation(ctx, CountsGenerationKey)
	if err != nil {
		metrics.CountsCacheLookups.WithLabelValues("error").Inc()
		nlog.FromContext(ctx).Warn().Err(err).Msg("read counts cache generation failed")

		return -1
	}

	return gen
}

// InvalidateCounts 让之前缓存的计数全部失效.
func (s *CollectionService) InvalidateCounts(ctx context.Context) error {
	return invalidateCounts(ctx, s.deps.KV)
}

func invalidateCounts(ctx context.Context, store kv.KVStore) error {
	if store == nil {
		return nil
	}

	if _, err := cache.NewCache(store).Bump(ctx, CountsGenerationKey); err != nil {
		return fmt.Errorf("bump counts generation: %w", err)
	}

	return nil
}

// invalidateAfterWrite 写入后直接失效计数缓存，不依赖事件消费者；失败只记日志.
func invalidateAfterWrite(ctx context.Context, d Deps) {
	if err := invalidateCounts(context.WithoutCancel(ctx), d.KV); err != nil {
		nlog.FromContext(ctx).Warn().Err(err).Msg("invalidate counts cache failed")
	}
}

// Create 创建集合，存入者为当前用户，随后写入索引.
func (s *CollectionService) Create(
	ctx context.Context, p types.Principal, req types.CreateCollectionRequest,
) (*model.Collection, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}

	col := &model.Collection{
		ID:          newID(),
		Title:       req.Title,
		Description: req.Description,
		Depositor:   p.User,
		Visibility:  req.Visibility,
	}

	if col.Visibility == "" {
		col.Visibility = model.VisibilityRestricted
	}

	for _, g := range req.Grants {
		col.Permissions = append(col.Permissions, model.CollectionPermission{
			Agent:     g.Agent,
			AgentType: g.AgentType,
			Access:    g.Access,
		})
	}

	if err := s.store.Create(ctx, col); err != nil {
		return nil, err
	}

	defer invalidateAfterWrite(ctx, s.deps)

	if s.deps.Writer != nil {
		if err := NewIndexerService(s.deps).IndexCollection(ctx, col); err != nil {
			return col, err
		}
	}

	return col, nil
}

func countsKey(gen int64, p types.Principal, scope types.AccessScope, field string) string {
	groups := slices.Clone(p.Groups)
	slices.Sort(groups)

	return cache.Key(countsKeyPrefix, gen,
		p.User, strings.Join(groups, ","), strconv.FormatBool(p.Admin), string(scope), field)
}
