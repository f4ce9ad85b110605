package archive

import (
	"context"
	"testing"
	"time"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/config"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
)

func TestNew_None(t *testing.T) {
	for _, backend := range []string{"", "none"} {
		a, closeFn, err := New(context.Background(), config.ArchiveConfig{Backend: backend})
		if err != nil || a != nil {
			t.Errorf("backend %q: (%v, %v), want (nil, nil)", backend, a, err)
		}
		if err := closeFn(context.Background()); err != nil {
			t.Errorf("close: %v", err)
		}
	}
}

func TestNew_Unknown(t *testing.T) {
	if _, _, err := New(context.Background(), config.ArchiveConfig{Backend: "s3"}); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestObjectName(t *testing.T) {
	r := &discovery.Report{
		RunID:     "4a7c",
		StartedAt: time.Date(2026, 2, 3, 23, 0, 0, 0, time.FixedZone("PST", -8*3600)),
	}
	if got := ObjectName(r); got != "runs/2026/02/04/4a7c.json" {
		t.Errorf("ObjectName = %q", got)
	}
}
