// Package model defines data structures shared by discovery, moderation and search.
package model

import (
	"net/url"
	"strings"
	"time"
)

// Location is a city/state pair as entered on a profile. Empty strings stand
// for missing values.
type Location struct {
	City  string `json:"city" bson:"city"`
	State string `json:"state" bson:"state"`
}

// Key returns the canonical LocationKey: lower(city) + "|" + lower(state).
// It is empty when both parts are blank.
func (l Location) Key() string {
	city := strings.ToLower(strings.TrimSpace(l.City))
	state := strings.ToLower(strings.TrimSpace(l.State))
	if city == "" && state == "" {
		return ""
	}
	return city + "|" + state
}

// Profile mirrors the profiles table. Only City/State drive discovery; the
// remaining attributes feed relevance (match reasons and ranking).
type Profile struct {
	UserID          string   `json:"userId"`
	City            *string  `json:"city"`
	State           *string  `json:"state"`
	GPA             *float64 `json:"gpa"`
	GraduationYear  *int     `json:"graduationYear"`
	Ethnicity       *string  `json:"ethnicity"`
	Gender          *string  `json:"gender"`
	FirstGeneration *bool    `json:"firstGeneration"`
	AGIRange        *string  `json:"agiRange"`
	IntendedMajor   *string  `json:"intendedMajor"`
	Athletics       *string  `json:"athletics"`
	ECCategories    []string `json:"ecCategories"`
}

// Location returns the profile's city/state pair.
func (p Profile) Location() Location {
	return Location{City: deref(p.City), State: deref(p.State)}
}

// Competition levels as stored on scholarships.
const (
	CompetitionLocal    = "local"
	CompetitionRegional = "regional"
	CompetitionState    = "state"
	CompetitionNational = "national"
)

// ValidCompetitionLevel reports whether s is one of the stored levels.
func ValidCompetitionLevel(s string) bool {
	switch s {
	case CompetitionLocal, CompetitionRegional, CompetitionState, CompetitionNational:
		return true
	}
	return false
}

// Candidate is a scholarship produced by a discovery source, before moderation.
type Candidate struct {
	Name                   string     `json:"name"`
	Organization           string     `json:"organization"`
	Amount                 int        `json:"amount"`
	Deadline               *time.Time `json:"deadline,omitempty"`
	ApplicationURL         string     `json:"applicationUrl"`
	Description            string     `json:"description"`
	Eligibility            string     `json:"eligibility,omitempty"`
	City                   *string    `json:"city,omitempty"`
	State                  *string    `json:"state,omitempty"`
	IsNational             bool       `json:"isNational"`
	CompetitionLevel       *string    `json:"competitionLevel,omitempty"`
	EstimatedApplicants    *int       `json:"estimatedApplicants,omitempty"`
	RequiresEssay          bool       `json:"requiresEssay"`
	RequiresRecommendation bool       `json:"requiresRecommendation"`
	RequiresTranscript     bool       `json:"requiresTranscript"`
	RequiresResume         bool       `json:"requiresResume"`
	EssayWordCount         *int       `json:"essayWordCount,omitempty"`
	EssayPrompts           []string   `json:"essayPrompts,omitempty"`
	MinGPA                 *float64   `json:"minGpa,omitempty"`
	SourceURL              string     `json:"sourceUrl,omitempty"`
	// InitialStatus is whatever the discovery source classified the
	// candidate as ("pending" or "needs_review"). Stores coerce anything else
	// to "pending".
	InitialStatus string `json:"-"`
}

// DedupKey identifies a candidate across discovery runs: the normalised
// application URL when present, otherwise lower(name|organization).
func (c Candidate) DedupKey() string {
	if u := NormalizeURL(c.ApplicationURL); u != "" {
		return "url:" + u
	}
	if u := NormalizeURL(c.SourceURL); u != "" {
		return "url:" + u
	}
	name := strings.ToLower(strings.Join(strings.Fields(c.Name), " "))
	org := strings.ToLower(strings.Join(strings.Fields(c.Organization), " "))
	if name == "" {
		return ""
	}
	return "name:" + name + "|" + org
}

// NormalizeURL lowercases scheme and host, drops "www.", the fragment and a
// trailing slash. Unparseable input yields "".
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	out := host + path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Scholarship is a published, search-visible record. Deadline is nil for
// rolling opportunities, which search never returns.
type Scholarship struct {
	ID string `json:"id"`
	Candidate
	PublishedAt time.Time `json:"publishedAt"`
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
