package search

import (
	"fmt"
	"hash/fnv"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
)

// Filter values. The zero value of every field means "no constraint".
const (
	LocationAll      = "all"
	LocationLocal    = "local"
	LocationState    = "state"
	LocationNational = "national"

	AmountAny = "any"
	Amount1k  = "1k"
	Amount5k  = "5k"
	Amount10k = "10k"

	DeadlineAny     = "any"
	DeadlineMonth   = "month"
	DeadlineQuarter = "quarter"

	CompetitionAny    = "any"
	CompetitionLow    = "low"
	CompetitionMedium = "medium"
	CompetitionHigh   = "high"

	EssayAny = "any"
	EssayYes = "yes"
	EssayNo  = "no"
)

// Filters is the caller-facing filter set, bound straight from the query string.
type Filters struct {
	Location      string `form:"location" json:"location" binding:"omitempty,oneof=all local state national"`
	Amount        string `form:"amount" json:"amount" binding:"omitempty,oneof=any 1k 5k 10k"`
	Deadline      string `form:"deadline" json:"deadline" binding:"omitempty,oneof=any month quarter"`
	Competition   string `form:"competition" json:"competition" binding:"omitempty,oneof=any low medium high"`
	RequiresEssay string `form:"requiresEssay" json:"requiresEssay" binding:"omitempty,oneof=any yes no"`
}

var allowed = map[string][]string{
	"location":      {LocationAll, LocationLocal, LocationState, LocationNational},
	"amount":        {AmountAny, Amount1k, Amount5k, Amount10k},
	"deadline":      {DeadlineAny, DeadlineMonth, DeadlineQuarter},
	"competition":   {CompetitionAny, CompetitionLow, CompetitionMedium, CompetitionHigh},
	"requiresEssay": {EssayAny, EssayYes, EssayNo},
}

// Normalize fills absent fields with their unconstrained value.
func (f Filters) Normalize() Filters {
	orDefault := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Filters{
		Location:      orDefault(f.Location, LocationAll),
		Amount:        orDefault(f.Amount, AmountAny),
		Deadline:      orDefault(f.Deadline, DeadlineAny),
		Competition:   orDefault(f.Competition, CompetitionAny),
		RequiresEssay: orDefault(f.RequiresEssay, EssayAny),
	}
}

// Validate reports every field holding a value outside its enumeration.
func (f Filters) Validate() error {
	n := f.Normalize()
	fields := []struct{ name, value string }{
		{"location", n.Location},
		{"amount", n.Amount},
		{"deadline", n.Deadline},
		{"competition", n.Competition},
		{"requiresEssay", n.RequiresEssay},
	}
	var issues []apperr.Issue
	for _, fd := range fields {
		if !contains(allowed[fd.name], fd.value) {
			issues = append(issues, apperr.Issue{
				Field:   fd.name,
				Message: fmt.Sprintf("must be one of %v", allowed[fd.name]),
			})
		}
	}
	if len(issues) > 0 {
		return &apperr.ValidationError{Msg: "invalid search filters", Issues: issues}
	}
	return nil
}

// Hash identifies the normalized filter set. Cursors carry it so a page token
// cannot be replayed against different filters.
func (f Filters) Hash() string {
	n := f.Normalize()
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", n.Location, n.Amount, n.Deadline, n.Competition, n.RequiresEssay)
	return fmt.Sprintf("%016x", h.Sum64())
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
