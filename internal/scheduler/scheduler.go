// Package scheduler runs the periodic expiry and notification sweeps on
// a single cron timeline.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/wb-go/wbf/zlog"

	"github.com/webstoer2020/Subscription-bot/internal/clock"
)

// Config holds the sweep cadences as cron specs. The defaults keep
// notification latency low without hammering the store; both are
// tunables, not correctness parameters.
type Config struct {
	NotifySpec string // e.g. "@every 10s"
	ExpireSpec string // e.g. "@every 30s"
}

// Scheduler owns the cron instance driving the sweeps.
type Scheduler struct {
	cron *cron.Cron
	jobs *Jobs
	cfg  Config
}

// New creates a scheduler whose cron timeline is pinned to the engine's
// reference timezone and whose jobs recover from panics instead of
// killing the timeline.
func New(jobs *Jobs, clk clock.Clock, cfg Config) *Scheduler {
	c := cron.New(
		cron.WithLocation(clk.Location()),
		cron.WithChain(cron.Recover(cron.PrintfLogger(&zlog.Logger))),
	)

	return &Scheduler{
		cron: c,
		jobs: jobs,
		cfg:  cfg,
	}
}

// Start registers the sweeps and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.NotifySpec, s.jobs.CheckNotifications); err != nil {
		return err
	}
	zlog.Logger.Info().Str("spec", s.cfg.NotifySpec).Msg("scheduled notification sweep")

	if _, err := s.cron.AddFunc(s.cfg.ExpireSpec, s.jobs.CheckExpired); err != nil {
		return err
	}
	zlog.Logger.Info().Str("spec", s.cfg.ExpireSpec).Msg("scheduled expiry sweep")

	s.cron.Start()

	return nil
}

// Stop stops scheduling new runs and returns a context that completes
// once in-flight sweeps have finished, so shutdown never aborts a sweep
// mid-row-set.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ForceCheck runs both sweeps immediately, outside the timers.
func (s *Scheduler) ForceCheck(ctx context.Context) {
	s.jobs.ForceCheck(ctx)
}
