package scheduler

import (
	"context"
	"sync"
	"time"

	"collector/internal/service"
	"collector/pkg/logger"
)

// Job is a unit of periodic work. Each run is bounded by Interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	jobs    []Job
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex // protects cancels
	cancels map[string]context.CancelFunc
}

func New(jobs ...Job) *Scheduler {
	active := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job.Interval <= 0 || job.Run == nil {
			logger.Warn("scheduler job skipped", "module", "scheduler", "action", "register", "resource", "job", "result", "skipped", "job", job.Name)
			continue
		}
		active = append(active, job)
	}
	return &Scheduler{
		jobs:    active,
		stopCh:  make(chan struct{}),
		cancels: make(map[string]context.CancelFunc),
	}
}

// MailDispatchJob drains the outbox.
func MailDispatchJob(mail service.MailService, interval time.Duration) Job {
	return Job{
		Name:     "mail_dispatch",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := mail.Dispatch(ctx)
			return err
		},
	}
}

// HousekeepingJob purges expired verification and password reset tokens.
func HousekeepingJob(housekeeping service.HousekeepingService, interval time.Duration) Job {
	return Job{
		Name:     "housekeeping",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := housekeeping.Purge(ctx)
			return err
		},
	}
}

func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.run(job)
		logger.Info("scheduler started", "module", "scheduler", "action", "start", "resource", "job", "result", "ok",
			"job", job.Name, "interval", job.Interval)
	}
}

func (s *Scheduler) Stop() {
	// 先取消正在执行的任务
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	logger.Info("scheduler stopped", "module", "scheduler", "action", "stop", "resource", "job", "result", "ok")
}

func (s *Scheduler) run(job Job) {
	defer s.wg.Done()

	// Run immediately on start
	s.execute(job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.execute(job)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) execute(job Job) {
	select {
	case <-s.stopCh:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), job.Interval)

	s.mu.Lock()
	s.cancels[job.Name] = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, job.Name)
		s.mu.Unlock()
	}()

	logger.Debug("scheduled job running", "module", "scheduler", "action", "run", "resource", "job", "job", job.Name)
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info("scheduled job cancelled", "module", "scheduler", "action", "run", "resource", "job", "result", "cancelled", "job", job.Name)
			return
		}
		logger.Error("scheduled job failed", "module", "scheduler", "action", "run", "resource", "job", "result", "failed",
			"job", job.Name, "error", err)
	}
}
