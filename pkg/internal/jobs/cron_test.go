package jobs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/jobs"
	"github.com/simholt/hyrax/pkg/internal/storage"
	"github.com/simholt/hyrax/pkg/scheduler"
)

func TestRegisterCronJobs(t *testing.T) {
	sched, err := scheduler.NewScheduler()
	require.NoError(t, err)

	var cfg configs.AppConfig

	require.NoError(t, jobs.RegisterCronJobs(sched, &storage.Manager{}, cfg))
	assert.Empty(t, sched.GetJobInfos(), "report disabled")

	cfg.Report.Enabled = true
	cfg.Report.Cron = configs.DefaultReportCron

	require.NoError(t, jobs.RegisterCronJobs(sched, &storage.Manager{}, cfg))

	info, err := sched.GetJobInfoByName(jobs.JobReportSnapshot)
	require.NoError(t, err)
	assert.Equal(t, configs.DefaultReportCron, info.CronExpr)

	require.Error(t, jobs.RegisterCronJobs(nil, &storage.Manager{}, cfg))
	require.Error(t, jobs.RegisterCronJobs(sched, nil, cfg))
}

func TestRegisterCronJobs_Reindex(t *testing.T) {
	sched, err := scheduler.NewScheduler()
	require.NoError(t, err)

	var cfg configs.AppConfig
	cfg.Search.ReindexCron = "0 3 * * *"

	require.NoError(t, jobs.RegisterCronJobs(sched, &storage.Manager{}, cfg))

	info, err := sched.GetJobInfoByName(jobs.JobReindex)
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * *", info.CronExpr)

	_, err = sched.GetJobInfoByName(jobs.JobReportSnapshot)
	require.Error(t, err)
}
