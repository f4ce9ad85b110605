package postgres

import (
	"testing"
	"time"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/search"
)

func TestBuildWhere_Minimal(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	where, args := buildWhere(search.Predicate{DeadlineFrom: today}, nil)
	if where != "deadline >= $1::date" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 1 || args[0] != today {
		t.Errorf("args = %v", args)
	}
}

func TestBuildWhere_AllClauses(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := today.AddDate(0, 0, 30)
	essay := true
	p := search.Predicate{
		City:              "austin",
		State:             "tx",
		MinAmount:         5000,
		DeadlineFrom:      today,
		DeadlineTo:        &to,
		CompetitionLevels: []string{"regional", "state"},
		RequiresEssay:     &essay,
	}
	after := &search.Key{Deadline: today.AddDate(0, 0, 3), ID: "6f1c2d7e-3b0a-4c55-9a43-0d5b8e7f1a22"}

	where, args := buildWhere(p, after)
	want := "deadline >= $1::date AND deadline <= $2::date AND lower(trim(city)) = $3 AND " +
		"lower(trim(state)) = $4 AND amount >= $5 AND competition_level = ANY($6) AND " +
		"requires_essay = $7 AND (deadline, id) > ($8::date, $9::uuid)"
	if where != want {
		t.Errorf("where =\n  %s\nwant\n  %s", where, want)
	}
	if len(args) != 9 {
		t.Fatalf("args = %d, want 9", len(args))
	}
	if args[6] != true || args[8] != after.ID {
		t.Errorf("args = %v", args)
	}
}

func TestBuildWhere_NationalOnlyHasNoArg(t *testing.T) {
	where, args := buildWhere(search.Predicate{NationalOnly: true}, nil)
	if where != "deadline >= $1::date AND is_national" || len(args) != 1 {
		t.Errorf("where = %q args = %v", where, args)
	}
}
