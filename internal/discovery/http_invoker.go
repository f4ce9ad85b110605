package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
)

const maxErrorBody = 512

// HTTPInvoker calls the discovery function over HTTP. The function receives a
// location-shaped profile and answers with the scholarships it found.
type HTTPInvoker struct {
	URL    string
	Key    string
	client *http.Client
}

// NewHTTPInvoker constructs an invoker with a shared HTTP client.
func NewHTTPInvoker(url, key string, timeout time.Duration) *HTTPInvoker {
	return &HTTPInvoker{
		URL:    url,
		Key:    key,
		client: &http.Client{Timeout: timeout},
	}
}

type discoverRequest struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// discoverResponse mirrors the function's JSON response.
type discoverResponse struct {
	Scholarships []wireCandidate `json:"scholarships"`
	Message      string          `json:"message"`
}

// wireCandidate accepts date-only deadlines and carries the source's status.
type wireCandidate struct {
	model.Candidate
	Deadline string `json:"deadline"`
	Status   string `json:"status"`
}

// Discover implements Invoker.
func (h *HTTPInvoker) Discover(ctx context.Context, loc model.Location) (*Result, error) {
	payload, _ := json.Marshal(discoverRequest{City: loc.City, State: loc.State})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.Key != "" {
		req.Header.Set("Authorization", "Bearer "+h.Key)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http POST: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, fmt.Errorf("discovery function returned %d: %s: %w", resp.StatusCode, snippet, apperr.ErrUpstreamUnavailable)
	}

	var apiResp discoverResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	out := &Result{Message: apiResp.Message, Scholarships: make([]model.Candidate, 0, len(apiResp.Scholarships))}
	for _, w := range apiResp.Scholarships {
		c := w.Candidate
		c.Deadline = parseDeadline(w.Deadline)
		c.InitialStatus = w.Status
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		out.Scholarships = append(out.Scholarships, c)
	}
	return out, nil
}

// parseDeadline accepts YYYY-MM-DD or RFC 3339; anything else means no deadline.
func parseDeadline(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d := model.DateOf(t)
			return &d
		}
	}
	return nil
}
