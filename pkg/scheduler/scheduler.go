// Package scheduler 提供定时任务调度功能，使用 gocron/v2 库.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/simholt/hyrax/pkg/log"
)

// ErrJobNotFound 任务不存在.
var ErrJobNotFound = errors.New("job not found")

// JobStatus 表示任务的状态类型.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 任务已调度
	StatusRunning   JobStatus = "running"   // 任务正在运行
	StatusError     JobStatus = "error"     // 上次运行出错
)

// JobFunc 任务函数，返回的错误记录在 JobInfo 上.
type JobFunc func(ctx context.Context) error

// JobInfo 表示定时任务的信息，用于可视化和监控.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Scheduler 是定时任务调度器的实现.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job // 以任务名称为键
	jobInfos  map[string]*JobInfo   // 以任务名称为键
	mu        sync.RWMutex
	logger    zerolog.Logger
}

// NewScheduler 创建一个新的 Scheduler 实例.
func NewScheduler(opts ...gocron.SchedulerOption) (*Scheduler, error) {
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		jobInfos:  make(map[string]*JobInfo),
		logger:    log.Component("scheduler"),
	}, nil
}

// AddCron 添加一个基于 cron 表达式的定时任务；同一任务不会并发运行.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	wrapped := func(ctx context.Context) {
		s.setStatus(name, StatusRunning, nil)

		var err error

		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job: %v", r)
			}

			s.finish(name, err)
		}()

		err = job(ctx)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrapped, ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	now := time.Now()
	nextRun, _ := j.NextRun()

	s.jobs[name] = j
	s.jobInfos[name] = &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		NextRun:   nextRun,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("added cron job")

	return nil
}

// RunNow 立即触发一次任务，不影响下一次计划时间.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return job.RunNow()
}

// RemoveJobByName 通过名称移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	if err := s.scheduler.RemoveJob(job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	delete(s.jobInfos, name)

	s.logger.Info().Str("job", name).Msg("removed job")

	return nil
}

// GetJobInfoByName 通过名称获取任务信息.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, exists := s.jobInfos[name]
	if !exists {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return s.snapshot(name, info), nil
}

// GetJobInfos 返回所有定时任务的信息，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobInfos))
	for name, info := range s.jobInfos {
		jobs = append(jobs, s.snapshot(name, info))
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	return jobs
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("starting scheduler")
	s.scheduler.Start()
}

// Shutdown 停止调度器并等待运行中的任务结束.
func (s *Scheduler) Shutdown() error {
	s.logger.Info().Msg("stopping scheduler")

	return s.scheduler.Shutdown()
}

// RemoveJob 通过 ID 移除任务.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, job := range s.jobs {
		if job.ID() == id {
			delete(s.jobs, name)
			delete(s.jobInfos, name)
		}
	}

	return s.scheduler.RemoveJob(id)
}

// snapshot 复制任务信息并从 gocron 读取下次运行时间；调用方持有读锁.
func (s *Scheduler) snapshot(name string, info *JobInfo) JobInfo {
	out := *info

	if job, ok := s.jobs[name]; ok {
		if next, err := job.NextRun(); err == nil {
			out.NextRun = next
		}
	}

	return out
}

func (s *Scheduler) setStatus(name string, status JobStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, exists := s.jobInfos[name]; exists {
		info.Status = status
		info.UpdatedAt = time.Now()

		if err != nil {
			info.Error = err.Error()
		}
	}
}

// finish 记录一次运行的结果.
func (s *Scheduler) finish(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, exists := s.jobInfos[name]
	if !exists {
		return
	}

	now := time.Now()
	info.LastRun = now
	info.UpdatedAt = now

	if err != nil {
		info.Status = StatusError
		info.Error = err.Error()

		s.logger.Error().Err(err).Str("job", name).Msg("job failed")

		return
	}

	info.Status = StatusScheduled
	info.Error = ""
	info.LastSuccess = now
}
