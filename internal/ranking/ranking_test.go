package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/search"
)

func strp(s string) *string { return &s }

var (
	testProfile = model.Profile{UserID: "u1", City: strp("Austin"), State: strp("TX"), IntendedMajor: strp("Biology")}
	testPage    = []search.Result{
		{ID: "a", Name: "Rotary Award", Organization: "Rotary", Amount: 1000, Deadline: "2026-04-01"},
		{ID: "b", Name: "STEM Futures", Organization: "NSF", Amount: 5000, Deadline: "2026-04-02"},
	}
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "intended major: Biology") || !strings.Contains(string(body), "id=b") {
			t.Errorf("prompt missing profile or page: %s", body)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
}

func newTestRanker(t *testing.T, url string) *LLMRanker {
	t.Helper()
	r, err := NewLLMRanker(Config{Provider: ProviderOpenAI, APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: url + "/"})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestLLMRanker_Success(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "```json\n{\"ranking\": [\"b\", \"a\"]}\n```")
	defer srv.Close()

	order, err := newTestRanker(t, srv.URL).Rank(context.Background(), testProfile, testPage)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("order = %v, want [b a]", order)
	}
}

func TestLLMRanker_UpstreamError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "")
	defer srv.Close()

	_, err := newTestRanker(t, srv.URL).Rank(context.Background(), testProfile, testPage)
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestLLMRanker_UnparseableContent(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "I think b is best")
	defer srv.Close()

	if _, err := newTestRanker(t, srv.URL).Rank(context.Background(), testProfile, testPage); err == nil {
		t.Error("expected parse error")
	}
}

func TestLLMRanker_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := newTestRanker(t, srv.URL).Rank(ctx, testProfile, testPage); err == nil {
		t.Error("expected error after deadline")
	}
	if time.Since(start) > time.Second {
		t.Error("Rank ignored the context deadline")
	}
}

func TestNewLLMRanker_Providers(t *testing.T) {
	r, err := NewLLMRanker(Config{Provider: ProviderNone})
	if err != nil || r != nil {
		t.Errorf("none provider = (%v, %v), want (nil, nil)", r, err)
	}
	if _, err := NewLLMRanker(Config{Provider: "ollama"}); err == nil {
		t.Error("unknown provider accepted")
	}
	g, err := NewLLMRanker(Config{Provider: ProviderGroq, APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if g.baseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("groq base URL = %s", g.baseURL)
	}
}

// ── Cache ──────────────────────────────────────────────────────────────────

type countingRanker struct {
	calls int
	order []string
	err   error
}

func (c *countingRanker) Rank(context.Context, model.Profile, []search.Result) ([]string, error) {
	c.calls++
	return c.order, c.err
}

func TestCacheKey_OrderInsensitive(t *testing.T) {
	reversed := []search.Result{testPage[1], testPage[0]}
	if CacheKey(testProfile, testPage) != CacheKey(testProfile, reversed) {
		t.Error("page order changed the key")
	}
	other := testProfile
	other.IntendedMajor = strp("History")
	if CacheKey(testProfile, testPage) == CacheKey(other, testPage) {
		t.Error("different profiles share a key")
	}
}

func TestCachedRanker_HitsAndExpiry(t *testing.T) {
	inner := &countingRanker{order: []string{"b", "a"}}
	cache := NewMemoryCache()
	clock := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	r := NewCachedRanker(inner, cache, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Rank(ctx, testProfile, testPage); err != nil {
			t.Fatal(err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}

	clock = clock.Add(2 * time.Minute)
	if _, err := r.Rank(ctx, testProfile, testPage); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("calls after expiry = %d, want 2", inner.calls)
	}

	cache.CleanExpired()
	if len(cache.entries) != 1 {
		t.Errorf("entries = %d, want only the fresh one", len(cache.entries))
	}
}

func TestCachedRanker_ErrorsAreNotCached(t *testing.T) {
	inner := &countingRanker{err: apperr.ErrUpstreamUnavailable}
	r := NewCachedRanker(inner, NewMemoryCache(), time.Minute, nil)

	for i := 0; i < 2; i++ {
		if _, err := r.Rank(context.Background(), testProfile, testPage); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}
