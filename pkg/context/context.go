// Package context 把存储客户端、调度器与请求身份挂到 context 上，服务层与任务从这里取依赖.
package context

import (
	"context"

	"github.com/simholt/hyrax/pkg/internal/storage"
	dbc "github.com/simholt/hyrax/pkg/internal/storage/db"
	kvc "github.com/simholt/hyrax/pkg/internal/storage/kv"
	mqc "github.com/simholt/hyrax/pkg/internal/storage/mq"
	s3c "github.com/simholt/hyrax/pkg/internal/storage/s3"
	searchc "github.com/simholt/hyrax/pkg/internal/storage/search"
	"github.com/simholt/hyrax/pkg/internal/types"
	"github.com/simholt/hyrax/pkg/scheduler"
)

type ContextKey string

const (
	PrincipalKey ContextKey = "principal"
	SchedulerKey ContextKey = "scheduler"
)

func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return storage.WithManager(ctx, mgr)
}

// fromManager 在没有 Manager 时返回零值.
func fromManager[T any](ctx context.Context, get func(*storage.Manager) T) T {
	if mgr := storage.FromContext(ctx); mgr != nil {
		return get(mgr)
	}

	var zero T

	return zero
}

func GetDBClient(ctx context.Context) *dbc.Client {
	return fromManager(ctx, (*storage.Manager).GetDBClient)
}

func GetKVClient(ctx context.Context) *kvc.Client {
	return fromManager(ctx, (*storage.Manager).GetKVClient)
}

func GetMQClient(ctx context.Context) *mqc.Client {
	return fromManager(ctx, (*storage.Manager).GetMQClient)
}

func GetS3Client(ctx context.Context) *s3c.Client {
	return fromManager(ctx, (*storage.Manager).GetS3Client)
}

func GetSearchClient(ctx context.Context) *searchc.Client {
	return fromManager(ctx, (*storage.Manager).GetSearchClient)
}

func WithScheduler(ctx context.Context, s *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, SchedulerKey, s)
}

// GetScheduler 未注入时为 nil.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	s, _ := ctx.Value(SchedulerKey).(*scheduler.Scheduler)
	return s
}

func WithPrincipal(ctx context.Context, p types.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal 未设置时为匿名身份.
func GetPrincipal(ctx context.Context) types.Principal {
	p, _ := ctx.Value(PrincipalKey).(types.Principal)
	return p
}
