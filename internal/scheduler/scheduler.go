package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weatheriq/internal/logger"
	"github.com/i474232898/weatheriq/internal/weather"
)

// Runner performs one bulk ingestion.
type Runner interface {
	Run(ctx context.Context) (weather.RunReport, error)
}

// Scheduler periodically runs bulk ingestion. Runs never overlap: a tick that
// fires while a run is in progress is skipped.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	runner     Runner
	interval   time.Duration
	runOnStart bool
	timeout    time.Duration
	log        logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler. A zero timeout lets a run take as long as it
// needs; Stop still cancels it.
func New(runner Runner, interval time.Duration, runOnStart bool, timeout time.Duration, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler:  s,
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		timeout:    timeout,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info(s.ctx, "scheduler: no ingest interval configured; nothing to schedule")
		return nil
	}

	job := s.scheduler.Every(s.interval)
	if !s.runOnStart {
		job = job.WaitForSchedule()
	}
	if _, err := job.Do(s.runOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info(s.ctx, "scheduler started", logger.String("interval", s.interval.String()))
	return nil
}

func (s *Scheduler) runOnce() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.log.Info(ctx, "scheduler: running ingestion job")
	report, err := s.runner.Run(ctx)
	if err != nil {
		s.log.Error(ctx, "scheduler: ingestion failed", logger.Error(err))
		return
	}
	s.log.Info(ctx, "scheduler: completed ingestion job",
		logger.String("run_id", report.RunID),
		logger.Int("stored", report.Stored),
		logger.Int("failed", report.Failed))
}

// Stop cancels an in-flight run and stops future jobs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
