package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
)

// Result is the published view returned to students. IsLocal,
// DaysUntilDeadline and MatchReason are computed per request.
type Result struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Organization           string   `json:"organization"`
	Amount                 int      `json:"amount"`
	Deadline               string   `json:"deadline"`
	ApplicationURL         string   `json:"applicationUrl"`
	Description            string   `json:"description"`
	Eligibility            string   `json:"eligibility"`
	CompetitionLevel       *string  `json:"competitionLevel"`
	EstimatedApplicants    *int     `json:"estimatedApplicants"`
	RequiresEssay          bool     `json:"requiresEssay"`
	RequiresRecommendation bool     `json:"requiresRecommendation"`
	RequiresTranscript     bool     `json:"requiresTranscript"`
	RequiresResume         bool     `json:"requiresResume"`
	EssayWordCount         *int     `json:"essayWordCount"`
	EssayPrompts           []string `json:"essayPrompts"`
	IsNational             bool     `json:"isNational"`
	IsLocal                bool     `json:"isLocal"`
	DaysUntilDeadline      int      `json:"daysUntilDeadline"`
	MatchReason            string   `json:"matchReason"`
	MinGPA                 *float64 `json:"minGpa"`
}

// Project builds the Result for s as seen by profile on date today.
func Project(s model.Scholarship, profile model.Profile, today time.Time) Result {
	today = model.DateOf(today)
	r := Result{
		ID:                     s.ID,
		Name:                   s.Name,
		Organization:           s.Organization,
		Amount:                 s.Amount,
		ApplicationURL:         s.ApplicationURL,
		Description:            s.Description,
		Eligibility:            s.Eligibility,
		CompetitionLevel:       s.CompetitionLevel,
		EstimatedApplicants:    s.EstimatedApplicants,
		RequiresEssay:          s.RequiresEssay,
		RequiresRecommendation: s.RequiresRecommendation,
		RequiresTranscript:     s.RequiresTranscript,
		RequiresResume:         s.RequiresResume,
		EssayWordCount:         s.EssayWordCount,
		EssayPrompts:           s.EssayPrompts,
		IsNational:             s.IsNational,
		MinGPA:                 s.MinGPA,
	}
	if r.EssayPrompts == nil {
		r.EssayPrompts = []string{}
	}
	if s.Deadline != nil {
		d := model.DateOf(*s.Deadline)
		r.Deadline = d.Format(cursorDateLayout)
		r.DaysUntilDeadline = int(d.Sub(today).Hours() / 24)
	}

	loc := profile.Location()
	sameState := loc.State != "" && s.State != nil && strings.EqualFold(strings.TrimSpace(*s.State), strings.TrimSpace(loc.State))
	r.IsLocal = sameState && loc.City != "" && s.City != nil &&
		strings.EqualFold(strings.TrimSpace(*s.City), strings.TrimSpace(loc.City))
	r.MatchReason = matchReason(s, profile, r.IsLocal, sameState)
	return r
}

func matchReason(s model.Scholarship, profile model.Profile, isLocal, sameState bool) string {
	var reasons []string
	switch {
	case isLocal:
		reasons = append(reasons, fmt.Sprintf("Local to %s, %s", strings.TrimSpace(*s.City), strings.TrimSpace(*s.State)))
	case sameState:
		reasons = append(reasons, fmt.Sprintf("Open to %s residents", strings.TrimSpace(*s.State)))
	case s.IsNational:
		reasons = append(reasons, "Open nationwide")
	}
	if s.MinGPA != nil && profile.GPA != nil && *profile.GPA >= *s.MinGPA {
		reasons = append(reasons, fmt.Sprintf("Your GPA meets the %.1f minimum", *s.MinGPA))
	}
	if len(reasons) == 0 {
		return "Matches your filters"
	}
	return strings.Join(reasons, "; ")
}
