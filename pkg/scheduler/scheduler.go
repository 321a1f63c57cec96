// Package scheduler 提供定时任务调度功能，使用 gocron/v2 库.
//
// 任务以名称唯一标识，默认单例模式运行：上一次执行未结束时，本次触发顺延，
// 避免到期发布检查等任务在慢速 I/O 下重叠执行.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/yeisme/postvault/pkg/log"
)

// ErrJobNotFound 指定名称的任务不存在.
var ErrJobNotFound = errors.New("job not found")

// JobStatus 表示任务的状态类型.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 任务已调度
	StatusRunning   JobStatus = "running"   // 任务正在运行
	StatusError     JobStatus = "error"     // 最近一次执行出错
)

// JobFunc 任务函数，返回的错误会记录到 JobInfo.
type JobFunc func(ctx context.Context) error

// JobInfo 表示定时任务的信息，用于可视化和监控.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Runs        int       `json:"runs"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Option 配置 Scheduler.
type Option func(*options)

type options struct {
	clock    clockwork.Clock
	location *time.Location
}

// WithClock 注入时钟，测试中使用 clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithLocation 设置 cron 表达式的时区，默认 UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// Scheduler 是定时任务调度器的实现.
type Scheduler struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock
	jobs      map[string]gocron.Job // 以任务名称为键
	jobInfos  map[string]*JobInfo   // 以任务名称为键
	mu        sync.RWMutex
	logger    *zerolog.Logger
}

// NewScheduler 创建一个新的 Scheduler 实例.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	o := options{clock: clockwork.NewRealClock(), location: time.UTC}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := gocron.NewScheduler(
		gocron.WithClock(o.clock),
		gocron.WithLocation(o.location),
	)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler: s,
		clock:     o.clock,
		jobs:      make(map[string]gocron.Job),
		jobInfos:  make(map[string]*JobInfo),
		logger:    log.Logger(),
	}, nil
}

// AddCron 添加一个基于 cron 表达式（5 段）的定时任务.
func (s *Scheduler) AddCron(ctx context.Context, name, cronExpr string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.wrap(name, job), ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	now := s.clock.Now()
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

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("Added cron job")

	return nil
}

// wrap 捕获执行状态与 panic.
func (s *Scheduler) wrap(name string, job JobFunc) func(ctx context.Context) {
	return func(ctx context.Context) {
		s.markRunning(name)

		var err error

		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job: %v", r)
				s.logger.Error().Str("job", name).Interface("panic", r).Msg("Job panicked")
			}

			s.markDone(name, err)
		}()

		err = job(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("Job failed")
		}
	}
}

func (s *Scheduler) markRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, ok := s.jobInfos[name]; ok {
		info.Status = StatusRunning
		info.LastRun = s.clock.Now()
		info.UpdatedAt = info.LastRun
	}
}

func (s *Scheduler) markDone(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.jobInfos[name]
	if !ok {
		return
	}

	now := s.clock.Now()
	info.Runs++
	info.UpdatedAt = now

	if err != nil {
		info.Status = StatusError
		info.Error = err.Error()

		return
	}

	info.Status = StatusScheduled
	info.Error = ""
	info.LastSuccess = now
}

// RunNow 立即触发一次任务，不影响原有调度.
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

	s.logger.Info().Str("job", name).Msg("Removed job")

	return nil
}

// RemoveJob 通过任务 ID 移除任务.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.RLock()

	var name string

	for n, j := range s.jobs {
		if j.ID() == id {
			name = n

			break
		}
	}
	s.mu.RUnlock()

	if name == "" {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	return s.RemoveJobByName(name)
}

// GetJobInfoByName 通过名称获取任务信息（副本）.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, exists := s.jobInfos[name]
	if !exists {
		return JobInfo{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.refreshNextRun(name, info)

	return *info, nil
}

// GetJobInfos 返回所有定时任务的信息，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobInfo, 0, len(s.jobInfos))
	for name, info := range s.jobInfos {
		s.refreshNextRun(name, info)
		jobs = append(jobs, *info)
	}

	slices.SortFunc(jobs, func(a, b JobInfo) int { return strings.Compare(a.Name, b.Name) })

	return jobs
}

// refreshNextRun 需持有写锁.
func (s *Scheduler) refreshNextRun(name string, info *JobInfo) {
	if job, ok := s.jobs[name]; ok {
		if next, err := job.NextRun(); err == nil {
			info.NextRun = next
		}
	}
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.scheduler.Jobs())).Msg("Starting scheduler")
	s.scheduler.Start()
}

// Stop 停止调度器并等待运行中的任务结束.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")

	return s.scheduler.Shutdown()
}
