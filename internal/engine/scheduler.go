package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// CheckRunner runs a check. *Engine satisfies it.
type CheckRunner interface {
	RunCheck(ctx context.Context, req CheckRequest) (*domain.RunReport, error)
}

// Scheduler runs periodic checks over every due subscriber.
type Scheduler struct {
	cron    *cron.Cron
	runner  CheckRunner
	timeout time.Duration
	log     *slog.Logger
}

// NewScheduler creates a Scheduler that triggers a check every interval.
// A zero timeout lets a scheduled run take as long as it needs.
func NewScheduler(
	runner CheckRunner,
	interval time.Duration,
	timeout time.Duration,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:    c,
		runner:  runner,
		timeout: timeout,
		log:     log,
	}

	if _, err := c.AddFunc("@every "+interval.String(), s.runCheck); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runCheck() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.log.Info("scheduled check starting")
	report, err := s.runner.RunCheck(ctx, CheckRequest{Trigger: TriggerScheduled})
	if err != nil {
		s.log.Error("scheduled check failed", "error", err)
		return
	}
	if report.Failed() {
		s.log.Warn("scheduled check finished with failures", "run", report.ID)
	}
}
