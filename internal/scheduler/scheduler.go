// Package scheduler wires up the cron job that periodically triggers a
// discovery run across every user location.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
)

// SpecOff disables the in-process schedule; runs then come only from the
// HTTP trigger.
const SpecOff = "off"

// Runner is the batch the scheduler fires.
type Runner interface {
	Run(ctx context.Context) (*discovery.Report, error)
}

// Scheduler wraps robfig/cron and manages the discovery loop.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string // cron spec, e.g. "@every 24h"
	log    *zap.Logger
}

// New creates a Scheduler firing runner on spec.
func New(runner Runner, spec string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		runner: runner,
		spec:   spec,
		log:    log,
	}
}

// Enabled reports whether a schedule is configured.
func (s *Scheduler) Enabled() bool { return s.spec != "" && s.spec != SpecOff }

// Start registers the job and starts the scheduler. Also runs one batch
// immediately so new locations are covered without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		s.log.Info("discovery schedule disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info("cron started", zap.String("spec", s.spec))

	// Run immediately on startup (non-blocking)
	go s.RunOnce(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// RunOnce fires one batch and logs its summary.
func (s *Scheduler) RunOnce(ctx context.Context) {
	report, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, discovery.ErrRunInProgress):
		s.log.Info("discovery run skipped, another run holds the lock")
		return
	case err != nil:
		s.log.Error("discovery run failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled discovery complete",
		zap.String("run_id", report.RunID),
		zap.Int("locations", report.LocationsProcessed),
		zap.Int("failed", report.Failed()),
		zap.Bool("partial", report.Partial),
	)
}
