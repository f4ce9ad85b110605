package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zap.AtomicLevel
	}{
		{"debug", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"warn", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"error", zap.NewAtomicLevelAt(zap.ErrorLevel)},
		{"bogus", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := New(Config{Level: tt.level, Format: "json"})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !log.Core().Enabled(tt.want.Level()) {
				t.Errorf("level %s should be enabled", tt.want.Level())
			}
			if tt.want.Level() > zap.DebugLevel && log.Core().Enabled(tt.want.Level()-1) {
				t.Errorf("level below %s should be disabled", tt.want.Level())
			}
		})
	}
}

func TestWithContext_AddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithActor(ctx, "admin-1")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", fields["request_id"])
	}
	if fields["actor"] != "admin-1" {
		t.Errorf("actor = %v, want admin-1", fields["actor"])
	}
}

func TestWithContext_NilBase(t *testing.T) {
	// Must not panic.
	WithContext(context.Background(), nil).Info("dropped")
}

func TestRequestID_Missing(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID = %q, want empty", got)
	}
}
