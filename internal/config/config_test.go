package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MAGPIE_CONFIG", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/magpie")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DISCOVERY_FUNCTION_URL", "http://localhost:9999/discover")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discovery.Budget != 300*time.Second {
		t.Errorf("budget = %s, want 300s", cfg.Discovery.Budget)
	}
	if cfg.Discovery.Workers != 1 {
		t.Errorf("workers = %d, want 1", cfg.Discovery.Workers)
	}
	if cfg.Server.APIPort != "8080" {
		t.Errorf("api port = %q, want 8080", cfg.Server.APIPort)
	}
	if cfg.Ranking.Provider != "none" {
		t.Errorf("ranking provider = %q, want none", cfg.Ranking.Provider)
	}
	if len(cfg.Auth.AdminIDs) != 0 {
		t.Errorf("admin ids = %v, want empty", cfg.Auth.AdminIDs)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_MemoryBackendNeedsNoDatabase(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("STORAGE_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageBackend != BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.StorageBackend)
	}
}

func TestLoad_AdminList(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ADMIN_USER_IDS", " alice, ,bob ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"alice", "bob"}
	if len(cfg.Auth.AdminIDs) != len(want) {
		t.Fatalf("admin ids = %v, want %v", cfg.Auth.AdminIDs, want)
	}
	for i := range want {
		if cfg.Auth.AdminIDs[i] != want[i] {
			t.Errorf("admin ids[%d] = %q, want %q", i, cfg.Auth.AdminIDs[i], want[i])
		}
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DISCOVERY_BUDGET", "five minutes")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed DISCOVERY_BUDGET")
	}
}

func TestLoad_RankTimeoutMustBeShorterThanRequest(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SEARCH_REQUEST_TIMEOUT", "2s")
	t.Setenv("SEARCH_RANK_TIMEOUT", "2s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when rank timeout >= request timeout")
	}
}

func TestLoad_RankingProviderRequiresKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RANKING_PROVIDER", "openai")
	t.Setenv("RANKING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for openai provider without key")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ranking.APIKey != "sk-test" {
		t.Errorf("api key = %q, want fallback from OPENAI_API_KEY", cfg.Ranking.APIKey)
	}
}

func TestLoad_YAMLFileThenEnvOverride(t *testing.T) {
	setBaseEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "magpie.yaml")
	content := `
log:
  level: debug
discovery:
  budget: 45s
  workers: 3
auth:
  admin_ids: [carol]
search:
  rate_limit: 10
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAGPIE_CONFIG", path)
	t.Setenv("DISCOVERY_WORKERS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Discovery.Budget != 45*time.Second {
		t.Errorf("budget = %s, want 45s", cfg.Discovery.Budget)
	}
	if cfg.Discovery.Workers != 5 {
		t.Errorf("workers = %d, want env override 5", cfg.Discovery.Workers)
	}
	if len(cfg.Auth.AdminIDs) != 1 || cfg.Auth.AdminIDs[0] != "carol" {
		t.Errorf("admin ids = %v, want [carol]", cfg.Auth.AdminIDs)
	}
	if cfg.Search.RateLimit != 10 {
		t.Errorf("rate limit = %d, want 10", cfg.Search.RateLimit)
	}
}

func TestLoad_RSSModeRequiresFeeds(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DISCOVERY_MODE", "rss")
	t.Setenv("DISCOVERY_FEEDS", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for rss mode without feeds")
	}

	t.Setenv("DISCOVERY_FEEDS", "https://example.org/a.xml, https://example.org/b.xml")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Discovery.Feeds) != 2 {
		t.Errorf("feeds = %v, want 2 entries", cfg.Discovery.Feeds)
	}
}
