// Package jobs 注册后台定时任务：计数报表快照与检索索引全量重建.
package jobs

import (
	"context"
	"errors"

	"github.com/simholt/hyrax/pkg/configs"
	ctxPkg "github.com/simholt/hyrax/pkg/context"
	"github.com/simholt/hyrax/pkg/internal/service"
	"github.com/simholt/hyrax/pkg/internal/storage"
	"github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/scheduler"
)

const (
	JobReportSnapshot = "report.collection_counts"
	JobReindex        = "search.reindex"
)

var errMissingDeps = errors.New("jobs: scheduler and storage manager are required")

type cronJob struct {
	name    string
	cron    string
	enabled bool
	run     func(context.Context) error
}

func cronJobs(cfg configs.AppConfig) []cronJob {
	return []cronJob{
		{name: JobReportSnapshot, cron: cfg.Report.Cron, enabled: cfg.Report.Enabled, run: runReportSnapshot},
		{name: JobReindex, cron: cfg.Search.ReindexCron, enabled: cfg.Search.ReindexCron != "", run: runReindex},
	}
}

// RegisterCronJobs 注册已启用的任务；任务运行时从 context 取存储客户端.
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager, cfg configs.AppConfig) error {
	if sched == nil || mgr == nil {
		return errMissingDeps
	}

	ctx := ctxPkg.WithStorageManager(context.Background(), mgr)

	for _, j := range cronJobs(cfg) {
		if !j.enabled {
			continue
		}

		if err := sched.AddCron(ctx, j.name, j.cron, j.run); err != nil {
			return err
		}
	}

	return nil
}

func runReportSnapshot(ctx context.Context) error {
	report, err := service.NewReportService(service.DepsFromContext(ctx)).Snapshot(ctx)
	if err != nil {
		return err
	}

	log.Component("jobs").Info().
		Str("job", JobReportSnapshot).
		Str("report_id", report.ID).
		Int("collections", len(report.Items)).
		Int("works", report.TotalWorks).
		Int("files", report.TotalFiles).
		Msg("report snapshot stored")

	return nil
}

func runReindex(ctx context.Context) error {
	res, err := service.NewIndexerService(service.DepsFromContext(ctx)).ReindexAll(ctx)
	if err != nil {
		return err
	}

	log.Component("jobs").Info().
		Str("job", JobReindex).
		Interface("result", res).
		Msg("reindex finished")

	return nil
}
