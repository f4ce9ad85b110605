// Package discovery runs the scheduled batch that asks an external content
// source for scholarships near every distinct user location and files the
// candidates into the moderation queue.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
)

// ErrRunInProgress is returned when another batch holds the run lock.
var ErrRunInProgress = fmt.Errorf("discovery run already in progress: %w", apperr.ErrConflict)

// Result is what a content source returns for one location.
type Result struct {
	Scholarships []model.Candidate
	Message      string
}

// Invoker is the content source boundary.
type Invoker interface {
	Discover(ctx context.Context, loc model.Location) (*Result, error)
}

// IngestStats counts the outcome of filing one location's candidates.
type IngestStats struct {
	Inserted   int
	Duplicates int
}

// Sink files candidates as pending moderation records. Ingest is atomic per
// call: either every new candidate is stored or none is.
type Sink interface {
	Ingest(ctx context.Context, loc model.Location, candidates []model.Candidate) (IngestStats, error)
}

// LocationSource lists the city/state pairs of every profile.
type LocationSource interface {
	Locations(ctx context.Context) ([]model.Location, error)
}

// Locker guards against overlapping runs. Acquire returns ErrRunInProgress
// when the lock is held; release is safe to call once.
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), err error)
}

// Archiver keeps run reports for later inspection.
type Archiver interface {
	Archive(ctx context.Context, r *Report) error
}

// Outcome is the per-location result slot.
type Outcome struct {
	Found      int    `json:"found" bson:"found"`
	Inserted   int    `json:"inserted" bson:"inserted"`
	Duplicates int    `json:"duplicates" bson:"duplicates"`
	Flagged    int    `json:"flagged,omitempty" bson:"flagged,omitempty"`
	Message    string `json:"message,omitempty" bson:"message,omitempty"`
	Error      string `json:"error,omitempty" bson:"error,omitempty"`
}

// OK reports whether the location was discovered and ingested.
func (o Outcome) OK() bool { return o.Error == "" }

// LocationOutcome pairs a location with its Outcome.
type LocationOutcome struct {
	City   string  `json:"city" bson:"city"`
	State  string  `json:"state" bson:"state"`
	Result Outcome `json:"result" bson:"result"`
}

// Report summarises one batch.
type Report struct {
	RunID              string            `json:"runId" bson:"_id"`
	StartedAt          time.Time         `json:"startedAt" bson:"started_at"`
	FinishedAt         time.Time         `json:"finishedAt" bson:"finished_at"`
	LocationsTotal     int               `json:"locationsTotal" bson:"locations_total"`
	LocationsProcessed int               `json:"locationsProcessed" bson:"locations_processed"`
	Partial            bool              `json:"partial" bson:"partial"`
	Results            []LocationOutcome `json:"results" bson:"results"`
}

// Failed counts the locations whose slot holds an error.
func (r *Report) Failed() int {
	n := 0
	for _, lo := range r.Results {
		if !lo.Result.OK() {
			n++
		}
	}
	return n
}
