// Package app 提供应用程序的初始化和运行功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/simholt/hyrax/pkg/api"
	appcache "github.com/simholt/hyrax/pkg/cache"
	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/jobs"
	"github.com/simholt/hyrax/pkg/internal/model"
	"github.com/simholt/hyrax/pkg/internal/mq"
	"github.com/simholt/hyrax/pkg/internal/storage"
	"github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/metrics"
	"github.com/simholt/hyrax/pkg/middleware"
	"github.com/simholt/hyrax/pkg/rule"
	"github.com/simholt/hyrax/pkg/scheduler"
	"github.com/simholt/hyrax/pkg/tracing"
)

// App HTTP 服务及其后台任务.
type App struct {
	Engine  *gin.Engine
	config  configs.AppConfig
	manager *storage.Manager
	sched   *scheduler.Scheduler
}

// Bootstrap 加载配置并初始化日志、追踪、指标与存储；命令行子命令也使用它.
func Bootstrap(ctx context.Context, configPath string) (*storage.Manager, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	log.Init()
	rule.Engine()

	config := configs.GetConfig()

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if err := manager.GetDBClient().GetDB().WithContext(ctx).AutoMigrate(model.AllModels()...); err != nil {
		_ = manager.Close()

		return nil, fmt.Errorf("migrate: %w", err)
	}

	return manager, nil
}

// NewApp 初始化运行环境并装配 gin 引擎、路由与定时任务.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	manager, err := Bootstrap(ctx, configPath)
	if err != nil {
		return nil, err
	}

	config := *configs.GetConfig()

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	sched, err := scheduler.NewScheduler()
	if err != nil {
		_ = manager.Close()

		return nil, err
	}

	if err := jobs.RegisterCronJobs(sched, manager, config); err != nil {
		_ = manager.Close()

		return nil, fmt.Errorf("register cron jobs: %w", err)
	}

	engine := gin.New()
	engine.Use(
		middleware.RecoveryMiddleware(),
		middleware.CORSMiddleware(config.Server),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/debug/pprof"})),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.RoleMiddleware(),
		middleware.AuthMiddleware(config.Auth),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.BackendsMiddleware(manager, sched),
	)

	metrics.Mount(config.Metrics, engine)

	var respCache *appcache.Cache
	if kvc := manager.GetKVClient(); kvc != nil {
		respCache = appcache.NewCache(kvc)
	}

	api.RegisterGroup(engine, config, respCache)

	return &App{
		Engine:  engine,
		config:  config,
		manager: manager,
		sched:   sched,
	}, nil
}

// Run 启动 HTTP 服务、调度器和事件消费者，直到 ctx 取消后优雅退出.
func (a *App) Run(ctx context.Context) error {
	l := log.Logger()

	srv := &http.Server{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	a.sched.Start()

	if mqc, kvc := a.manager.GetMQClient(), a.manager.GetKVClient(); mqc != nil && kvc != nil {
		consumer := mq.NewInvalidationConsumer(mqc, kvc)

		g.Go(func() error { return consumer.Run(ctx) })
	}

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.Server.ShutdownTimeout)
		defer cancel()

		l.Info().Msg("shutting down")

		return errors.Join(
			srv.Shutdown(shutdownCtx),
			a.sched.Shutdown(),
			tracing.ShutdownTracer(shutdownCtx),
		)
	})

	err := g.Wait()

	return errors.Join(err, a.manager.Close())
}
