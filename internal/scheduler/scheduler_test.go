package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
)

type countingRunner struct {
	calls int32
	err   error
}

func (r *countingRunner) Run(context.Context) (*discovery.Report, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.err != nil {
		return nil, r.err
	}
	return &discovery.Report{RunID: "run-1", LocationsProcessed: 3}, nil
}

func TestStart_RunsImmediately(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, "@every 1h", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&runner.calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := atomic.LoadInt32(&runner.calls); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestStart_Disabled(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, SpecOff, nil)
	if s.Enabled() {
		t.Error("Enabled() = true for off")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&runner.calls) != 0 {
		t.Error("disabled scheduler ran a batch")
	}
}

func TestStart_InvalidSpec(t *testing.T) {
	if err := New(&countingRunner{}, "every tuesday", nil).Start(context.Background()); err == nil {
		t.Error("invalid spec accepted")
	}
}

func TestRunOnce_LockHeldIsNotAnError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(&countingRunner{err: discovery.ErrRunInProgress}, SpecOff, zap.New(core))

	s.RunOnce(context.Background())
	if logs.FilterLevelExact(zap.ErrorLevel).Len() != 0 {
		t.Error("held lock logged as an error")
	}
	if logs.FilterMessageSnippet("skipped").Len() != 1 {
		t.Error("skip not logged")
	}
}

type blockingRunner struct {
	started  chan struct{}
	finished chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context) (*discovery.Report, error) {
	close(r.started)
	defer close(r.finished)
	select {
	case <-ctx.Done():
		return &discovery.Report{RunID: "run-1", Partial: true}, nil
	case <-time.After(5 * time.Second):
		return &discovery.Report{RunID: "run-1"}, nil
	}
}

// Shutdown cancels the run context before stopping, so an in-flight batch
// ends as partial instead of holding shutdown for its whole budget.
func TestShutdown_CancelThenStop(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), finished: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	s := New(runner, "@every 1h", nil)
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	<-runner.started

	start := time.Now()
	cancel()
	s.Stop()
	select {
	case <-runner.finished:
	case <-time.After(time.Second):
		t.Fatal("run still in flight after cancel and Stop")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("shutdown took %v", elapsed)
	}
}
