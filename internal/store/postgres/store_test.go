package postgres

import (
	"strings"
	"testing"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
)

func TestCandidateColumnsMatchArgs(t *testing.T) {
	cols := strings.Split(candidateColumns, ",")
	var c model.Candidate
	if len(cols) != len(candidateArgs(c)) || len(cols) != len(candidateDest(&c)) {
		t.Errorf("columns=%d args=%d dest=%d", len(cols), len(candidateArgs(c)), len(candidateDest(&c)))
	}
}

func TestCandidateArgs_DropsUnknownCompetition(t *testing.T) {
	level := "galactic"
	args := candidateArgs(model.Candidate{Name: "x", CompetitionLevel: &level})
	if args[10].(*string) != nil {
		t.Errorf("competition level = %v, want nil", args[10])
	}
	if prompts := args[17].([]string); prompts == nil {
		t.Error("essay prompts must be a non-nil slice")
	}
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"profiles", "pending_scholarships", "scholarships"} {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("schema missing %s", table)
		}
	}
}
