// Package ranking provides search.Ranker implementations backed by an
// OpenAI-compatible chat completions API, plus a result cache.
package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/search"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGroq   Provider = "groq"
	ProviderNone   Provider = "none"
)

var defaultBaseURLs = map[Provider]string{
	ProviderOpenAI: "https://api.openai.com/v1",
	ProviderGroq:   "https://api.groq.com/openai/v1",
}

// Config selects the provider. BaseURL overrides the provider default.
type Config struct {
	Provider Provider
	APIKey   string
	Model    string
	BaseURL  string
}

// LLMRanker asks a chat model to order a result page by relevance.
type LLMRanker struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewLLMRanker returns a ranker for cfg, or nil when the provider is none.
func NewLLMRanker(cfg Config) (*LLMRanker, error) {
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderOpenAI, ProviderGroq:
	default:
		return nil, fmt.Errorf("unknown ranking provider: %s", cfg.Provider)
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURLs[cfg.Provider]
	}
	return &LLMRanker{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(base, "/"),
		// The engine bounds each call with its own deadline; this is a backstop.
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type rankedIDs struct {
	Ranking []string `json:"ranking"`
}

// Rank implements search.Ranker.
func (r *LLMRanker) Rank(ctx context.Context, profile model.Profile, page []search.Result) ([]string, error) {
	if len(page) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"model": r.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You rank scholarships for a student. Return only valid JSON.",
			},
			{
				"role":    "user",
				"content": buildPrompt(profile, page),
			},
		},
		"temperature": 0.1,
		"response_format": map[string]string{
			"type": "json_object",
		},
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ranking request: %w: %v", apperr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ranking API returned %d: %w", resp.StatusCode, apperr.ErrUpstreamUnavailable)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode ranking response: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("ranking API error: %s: %w", result.Error.Message, apperr.ErrUpstreamUnavailable)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no response from ranking API: %w", apperr.ErrUpstreamUnavailable)
	}

	var ranked rankedIDs
	if err := json.Unmarshal([]byte(cleanJSON(result.Choices[0].Message.Content)), &ranked); err != nil {
		return nil, fmt.Errorf("failed to parse ranking: %w", err)
	}
	return ranked.Ranking, nil
}

func buildPrompt(profile model.Profile, page []search.Result) string {
	var b strings.Builder
	b.WriteString("Student profile:\n")
	writeAttr(&b, "city", profile.City)
	writeAttr(&b, "state", profile.State)
	if profile.GPA != nil {
		fmt.Fprintf(&b, "- gpa: %.2f\n", *profile.GPA)
	}
	if profile.GraduationYear != nil {
		fmt.Fprintf(&b, "- graduation year: %d\n", *profile.GraduationYear)
	}
	writeAttr(&b, "intended major", profile.IntendedMajor)
	writeAttr(&b, "ethnicity", profile.Ethnicity)
	writeAttr(&b, "gender", profile.Gender)
	if profile.FirstGeneration != nil && *profile.FirstGeneration {
		b.WriteString("- first-generation student\n")
	}
	writeAttr(&b, "household income", profile.AGIRange)
	writeAttr(&b, "athletics", profile.Athletics)
	if len(profile.ECCategories) > 0 {
		fmt.Fprintf(&b, "- activities: %s\n", strings.Join(profile.ECCategories, ", "))
	}

	b.WriteString("\nScholarships:\n")
	for _, s := range page {
		fmt.Fprintf(&b, "- id=%s | %s (%s) | $%d | due %s", s.ID, s.Name, s.Organization, s.Amount, s.Deadline)
		if s.Eligibility != "" {
			fmt.Fprintf(&b, " | eligibility: %s", s.Eligibility)
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Order every scholarship id from most to least relevant for this student.
Return ONLY JSON of the form {"ranking": ["id1", "id2", ...]}.`)
	return b.String()
}

func writeAttr(b *strings.Builder, name string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		fmt.Fprintf(b, "- %s: %s\n", name, strings.TrimSpace(*v))
	}
}

// cleanJSON strips markdown fences some models wrap around JSON output.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
