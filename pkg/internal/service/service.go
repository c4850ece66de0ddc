// Package service 实现集合计数、索引、批量导入与报表快照等业务逻辑.
//
// 服务通过 Deps 获取外部资源；HTTP 层用 DepsFromContext 从请求上下文取出存储管理器，
// 测试直接构造 Deps.缺失的依赖会让对应功能返回 ErrNotConfigured 或被跳过（事件发布、缓存）.
package service

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/configs"
	ctxPkg "github.com/simholt/hyrax/pkg/context"
	"github.com/simholt/hyrax/pkg/internal/storage/kv"
	"github.com/simholt/hyrax/pkg/internal/storage/s3"
	"github.com/simholt/hyrax/pkg/internal/storage/search"
)

// ErrNotConfigured 所需的存储资源未初始化.
var ErrNotConfigured = errors.New("required backend not configured")

// DocumentWriter 写入检索文档，*search.Client 实现了它.
type DocumentWriter interface {
	Add(ctx context.Context, docs []search.Document, commit bool) error
}

// ObjectStore 对象存储写入，*s3.Client 实现了它.
type ObjectStore interface {
	UploadFile(ctx context.Context, bucket, key, path, contentType string) (s3.ObjectInfo, error)
	PutBytes(ctx context.Context, bucket, key string, data []byte, contentType string) (s3.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string) error
}

// Deps 服务依赖.
type Deps struct {
	DB        *gorm.DB
	Search    Searcher
	Writer    DocumentWriter
	KV        kv.KVStore
	Publisher message.Publisher
	Objects   ObjectStore
	Config    configs.AppConfig
}

type depsKey struct{}

// WithDeps 在上下文中放入一组显式依赖，DepsFromContext 会优先使用它.
func WithDeps(ctx context.Context, d Deps) context.Context {
	return context.WithValue(ctx, depsKey{}, d)
}

// DepsFromContext 从上下文中的存储管理器与全局配置组装依赖.
func DepsFromContext(ctx context.Context) Deps {
	if d, ok := ctx.Value(depsKey{}).(Deps); ok {
		return d
	}

	d := Deps{Config: *configs.GetConfig()}

	if c := ctxPkg.GetDBClient(ctx); c != nil {
		d.DB = c.GetDB()
	}

	if c := ctxPkg.GetSearchClient(ctx); c != nil {
		d.Search = c
		d.Writer = c
	}

	if c := ctxPkg.GetKVClient(ctx); c != nil {
		d.KV = c
	}

	if c := ctxPkg.GetMQClient(ctx); c != nil {
		d.Publisher = c.Publisher()
	}

	if c := ctxPkg.GetS3Client(ctx); c != nil {
		d.Objects = c
	}

	return d
}

// eventsOn 事件总开关与分主题开关同时打开且有 publisher.
func (d Deps) eventsOn(topic bool) bool {
	return d.Publisher != nil && d.Config.Events.Enabled && topic
}
