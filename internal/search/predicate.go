package search

import (
	"net/http"
	"strings"
	"time"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
)

// Predicate is the conjunctive condition a published scholarship must satisfy.
// Catalog implementations translate it to their query language; Matches is
// the reference semantics.
type Predicate struct {
	// City and State are lower-cased; empty means unconstrained.
	City         string
	State        string
	NationalOnly bool
	MinAmount    int
	// DeadlineFrom is inclusive and always set: expired and undated
	// scholarships are never returned.
	DeadlineFrom time.Time
	// DeadlineTo is inclusive; nil means unbounded.
	DeadlineTo        *time.Time
	CompetitionLevels []string
	RequiresEssay     *bool
}

var minAmounts = map[string]int{
	Amount1k:  1000,
	Amount5k:  5000,
	Amount10k: 10000,
}

var deadlineWindows = map[string]int{
	DeadlineMonth:   30,
	DeadlineQuarter: 90,
}

var competitionLevels = map[string][]string{
	CompetitionLow:    {model.CompetitionLocal},
	CompetitionMedium: {model.CompetitionRegional, model.CompetitionState},
	CompetitionHigh:   {model.CompetitionNational},
}

// BuildPredicate translates f for the given caller profile. today is the
// caller's current date. Location filters the profile cannot satisfy yield a
// 422 *Error.
func BuildPredicate(f Filters, profile model.Profile, today time.Time) (Predicate, error) {
	f = f.Normalize()
	today = model.DateOf(today)
	p := Predicate{DeadlineFrom: today}

	loc := profile.Location()
	city := strings.ToLower(strings.TrimSpace(loc.City))
	state := strings.ToLower(strings.TrimSpace(loc.State))
	switch f.Location {
	case LocationLocal:
		if city == "" || state == "" {
			return Predicate{}, &Error{Status: http.StatusUnprocessableEntity, Message: "local search requires a city and state on your profile"}
		}
		p.City, p.State = city, state
	case LocationState:
		if state == "" {
			return Predicate{}, &Error{Status: http.StatusUnprocessableEntity, Message: "state search requires a state on your profile"}
		}
		p.State = state
	case LocationNational:
		p.NationalOnly = true
	}

	p.MinAmount = minAmounts[f.Amount]

	if days, ok := deadlineWindows[f.Deadline]; ok {
		to := today.AddDate(0, 0, days)
		p.DeadlineTo = &to
	}

	p.CompetitionLevels = competitionLevels[f.Competition]

	switch f.RequiresEssay {
	case EssayYes:
		v := true
		p.RequiresEssay = &v
	case EssayNo:
		v := false
		p.RequiresEssay = &v
	}
	return p, nil
}

// Matches reports whether s satisfies p.
func (p Predicate) Matches(s model.Scholarship) bool {
	if s.Deadline == nil {
		return false
	}
	d := model.DateOf(*s.Deadline)
	if d.Before(p.DeadlineFrom) {
		return false
	}
	if p.DeadlineTo != nil && d.After(*p.DeadlineTo) {
		return false
	}
	if p.City != "" && !equalFold(s.City, p.City) {
		return false
	}
	if p.State != "" && !equalFold(s.State, p.State) {
		return false
	}
	if p.NationalOnly && !s.IsNational {
		return false
	}
	if s.Amount < p.MinAmount {
		return false
	}
	if len(p.CompetitionLevels) > 0 {
		if s.CompetitionLevel == nil || !contains(p.CompetitionLevels, *s.CompetitionLevel) {
			return false
		}
	}
	if p.RequiresEssay != nil && s.RequiresEssay != *p.RequiresEssay {
		return false
	}
	return true
}

func equalFold(v *string, want string) bool {
	return v != nil && strings.EqualFold(strings.TrimSpace(*v), want)
}
