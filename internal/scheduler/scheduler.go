package scheduler

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

// Runner starts a screener run in the background
type Runner interface {
	StartRun(mode models.RunMode) error
}

// Scheduler triggers the daily screen on a cron expression with a seconds field
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	entry  cron.EntryID
}

// NewScheduler creates a new Scheduler
func NewScheduler(runner Runner) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		runner: runner,
	}
}

// Register adds the daily run. It may be called once.
func (s *Scheduler) Register(spec string) error {
	if s.entry != 0 {
		return errors.New("daily run already registered")
	}
	id, err := s.cron.AddFunc(spec, s.dailyRun)
	if err != nil {
		return fmt.Errorf("register daily run %q: %w", spec, err)
	}
	s.entry = id
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	observability.Info("scheduler started", "next_run", s.cron.Entry(s.entry).Next)
}

// Stop stops the cron scheduler and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	observability.Info("scheduler stopped")
}

// RunNow triggers the daily run immediately
func (s *Scheduler) RunNow() {
	s.dailyRun()
}

func (s *Scheduler) dailyRun() {
	observability.Info("scheduled screener run triggered")
	if err := s.runner.StartRun(models.RunModeDaily); err != nil {
		observability.Warn("scheduled screener run not started", "error", err)
	}
}
