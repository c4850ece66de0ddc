// Package storage 聚合服务用到的外部资源：数据库、对象存储、KV、消息队列和检索服务.
//
// Example:
//
// 初始化
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
// 获取存储客户端
//
//	searchClient := mgr.GetSearchClient()
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/simholt/hyrax/pkg/configs"
	dbc "github.com/simholt/hyrax/pkg/internal/storage/db"
	kvc "github.com/simholt/hyrax/pkg/internal/storage/kv"
	mqc "github.com/simholt/hyrax/pkg/internal/storage/mq"
	s3c "github.com/simholt/hyrax/pkg/internal/storage/s3"
	searchc "github.com/simholt/hyrax/pkg/internal/storage/search"
	nlog "github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/metrics"
)

// Manager 聚合所有存储资源；S3、KV、MQ 在未启用时为 nil.
type Manager struct {
	S3     *s3c.Client
	DB     *dbc.Client
	KV     *kvc.Client
	MQ     *mqc.Client
	Search *searchc.Client
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 使用全局配置初始化默认存储.重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = New(ctx, configs.GetConfig())
		if mgrErr == nil {
			nlog.Logger().Info().Msg("storage manager initialized")
		}
	})

	return mgr, mgrErr
}

// New 按配置创建一组新的存储客户端；失败时关闭已创建的部分.
func New(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	fail := func(err error) (*Manager, error) {
		_ = m.Close()

		return nil, err
	}

	// DB
	dbi, err := dbc.New(ctx, &cfg.DB, dbc.Options{Debug: cfg.Server.Debug, Metrics: cfg.Metrics.Enabled})
	if err != nil {
		return fail(fmt.Errorf("db: %w", err))
	}

	m.DB = dbi

	// Search
	si, err := searchc.New(cfg.Search)
	if err != nil {
		return fail(fmt.Errorf("search: %w", err))
	}

	m.Search = si

	// KV
	kvi, err := kvc.New(ctx, cfg.KV)
	if err != nil {
		return fail(fmt.Errorf("kv: %w", err))
	}

	m.KV = kvi

	// MQ
	if cfg.MQ.Enabled {
		opts := mqc.Options{}
		if cfg.Metrics.Enabled {
			opts.Registerer = metrics.GetRegistry()
		}

		mqi, err := mqc.New(ctx, &cfg.MQ, opts)
		if err != nil {
			return fail(fmt.Errorf("mq: %w", err))
		}

		m.MQ = mqi
	}

	// S3
	if cfg.S3.Enabled {
		s3i, err := s3c.New(ctx, cfg.S3, cfg.Ingest.Bucket, cfg.Report.Bucket)
		if err != nil {
			return fail(fmt.Errorf("s3: %w", err))
		}

		m.S3 = s3i
	}

	return m, nil
}

// GetS3Client 获取 S3 客户端.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// GetSearchClient 获取检索服务客户端.
func (m *Manager) GetSearchClient() *searchc.Client {
	return m.Search
}

// Close 释放全部资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
