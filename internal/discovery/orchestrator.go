package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/location"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultBudget        = 300 * time.Second
	DefaultIngestTimeout = 15 * time.Second
	archiveTimeout       = 10 * time.Second
)

// Options tunes an Orchestrator.
type Options struct {
	Budget        time.Duration
	Workers       int
	IngestTimeout time.Duration
	Locker        Locker
	Archiver      Archiver
	RedFlags      []string // candidates matching any term are held for review
	Now           func() time.Time
	Logger        *zap.Logger
}

// Orchestrator runs discovery batches.
type Orchestrator struct {
	locations LocationSource
	invoker   Invoker
	sink      Sink
	opts      Options
	log       *zap.Logger
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(locations LocationSource, invoker Invoker, sink Sink, opts Options) *Orchestrator {
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.IngestTimeout <= 0 {
		opts.IngestTimeout = DefaultIngestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{locations: locations, invoker: invoker, sink: sink, opts: opts, log: log}
}

// Run executes one batch under the configured budget. Per-location failures
// are recorded in the report; Run itself fails only when the batch cannot
// start (lock held, locations unavailable).
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if o.opts.Locker != nil {
		release, err := o.opts.Locker.Acquire(ctx, o.opts.Budget+o.opts.IngestTimeout+archiveTimeout)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	report := &Report{RunID: uuid.NewString(), StartedAt: o.opts.Now().UTC()}
	log := logger.WithContext(ctx, o.log).With(zap.String("run_id", report.RunID))

	all, err := o.locations.Locations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	locs := location.Deduplicate(all)
	report.LocationsTotal = len(locs)
	log.Info("discovery run started",
		zap.Int("profiles", len(all)),
		zap.Int("locations", len(locs)),
		zap.Int("workers", o.opts.Workers),
		zap.Duration("budget", o.opts.Budget),
	)

	budgetCtx, cancel := context.WithTimeout(ctx, o.opts.Budget)
	defer cancel()

	slots := make([]*LocationOutcome, len(locs))
	g := new(errgroup.Group)
	g.SetLimit(o.opts.Workers)
	for i, loc := range locs {
		if budgetCtx.Err() != nil {
			break
		}
		i, loc := i, loc
		g.Go(func() error {
			// The slot may have waited for a worker past the budget.
			if budgetCtx.Err() != nil {
				return nil
			}
			lo := o.processLocation(budgetCtx, log, loc)
			slots[i] = &lo
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range slots {
		if s != nil {
			report.Results = append(report.Results, *s)
		}
	}
	report.LocationsProcessed = len(report.Results)
	report.Partial = report.LocationsProcessed < len(locs) || budgetCtx.Err() != nil
	report.FinishedAt = o.opts.Now().UTC()

	log.Info("discovery run finished",
		zap.Int("processed", report.LocationsProcessed),
		zap.Int("failed", report.Failed()),
		zap.Bool("partial", report.Partial),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	if o.opts.Archiver != nil {
		actx, acancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		if err := o.opts.Archiver.Archive(actx, report); err != nil {
			log.Warn("archive run report failed", zap.Error(err))
		}
		acancel()
	}
	return report, nil
}

// processLocation discovers and ingests one location. Ingestion runs on a
// context detached from the budget so a started write is never cut short.
func (o *Orchestrator) processLocation(ctx context.Context, log *zap.Logger, loc model.Location) LocationOutcome {
	lo := LocationOutcome{City: loc.City, State: loc.State}
	log = log.With(zap.String("city", loc.City), zap.String("state", loc.State))

	res, err := o.invoker.Discover(ctx, loc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("discovery budget exhausted: %w", err)
		}
		log.Warn("discovery failed, continuing", zap.Error(err))
		lo.Result.Error = err.Error()
		return lo
	}
	if res == nil {
		res = &Result{}
	}
	lo.Result.Found = len(res.Scholarships)
	lo.Result.Message = res.Message
	if len(res.Scholarships) == 0 {
		return lo
	}
	lo.Result.Flagged = flagSuspicious(res.Scholarships, o.opts.RedFlags)

	ingestCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.IngestTimeout)
	defer cancel()
	stats, err := o.sink.Ingest(ingestCtx, loc, res.Scholarships)
	if err != nil {
		log.Error("ingest failed, continuing", zap.Error(err))
		lo.Result.Error = "ingest: " + err.Error()
		return lo
	}
	lo.Result.Inserted = stats.Inserted
	lo.Result.Duplicates = stats.Duplicates
	log.Info("location done",
		zap.Int("found", lo.Result.Found),
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("flagged", lo.Result.Flagged),
	)
	return lo
}
