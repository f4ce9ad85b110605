// Package config loads and validates runtime configuration at startup.
// Fail-fast: if a required value is missing or malformed, Load returns an error
// and the process exits.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML file
// named by MAGPIE_CONFIG, a .env file in the working directory, and finally
// the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all runtime configuration shared by the discovery and
// scholarship services.
type Config struct {
	StorageBackend   string `yaml:"storage_backend"` // "postgres" or "memory"
	DatabaseURL      string `yaml:"database_url"`
	DatabaseMaxConns int32  `yaml:"database_max_conns"`
	AutoMigrate      bool   `yaml:"auto_migrate"`
	RedisURL         string `yaml:"redis_url"`

	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Search    SearchConfig    `yaml:"search"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

type ServerConfig struct {
	DiscoveryPort string `yaml:"discovery_port"`
	APIPort       string `yaml:"api_port"`
	GRPCPort      string `yaml:"grpc_port"`
}

type AuthConfig struct {
	// JWTSecret verifies identity tokens issued by the auth collaborator.
	JWTSecret string `yaml:"jwt_secret"`
	// CronSecret guards the scheduled discovery trigger.
	CronSecret string `yaml:"cron_secret"`
	// AutomationSecret grants read access to the moderation queue.
	AutomationSecret string `yaml:"automation_secret"`
	// AdminIDs is the moderation allow-list. Empty admits every authenticated identity.
	AdminIDs []string `yaml:"admin_ids"`
}

type DiscoveryConfig struct {
	Cron          string        `yaml:"cron"` // robfig/cron spec; "off" disables the in-process schedule
	Budget        time.Duration `yaml:"budget"`
	Workers       int           `yaml:"workers"`
	IngestTimeout time.Duration `yaml:"ingest_timeout"`
	Mode          string        `yaml:"mode"` // "http" or "rss"
	FunctionURL   string        `yaml:"function_url"`
	FunctionKey   string        `yaml:"function_key"`
	InvokeTimeout time.Duration `yaml:"invoke_timeout"`
	Feeds         []string      `yaml:"feeds"`
	RedFlags      []string      `yaml:"red_flags"` // terms that hold a candidate for review
}

type SearchConfig struct {
	CursorSecret   string        `yaml:"cursor_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RankTimeout    time.Duration `yaml:"rank_timeout"`
	RateLimit      int           `yaml:"rate_limit"` // requests per minute per client
}

type RankingConfig struct {
	Provider string        `yaml:"provider"` // "none", "openai", "groq"
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type ArchiveConfig struct {
	Backend        string `yaml:"backend"` // "none", "mongo", "minio"
	MongoURI       string `yaml:"mongo_uri"`
	MongoDatabase  string `yaml:"mongo_database"`
	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		StorageBackend:   BackendPostgres,
		DatabaseMaxConns: 10,
		Log:              LogConfig{Level: "info", Format: "json"},
		Server:           ServerConfig{DiscoveryPort: "8081", APIPort: "8080", GRPCPort: "9090"},
		Discovery: DiscoveryConfig{
			Cron:          "@every 24h",
			Budget:        300 * time.Second,
			Workers:       1,
			IngestTimeout: 15 * time.Second,
			Mode:          "http",
			InvokeTimeout: 120 * time.Second,
		},
		Search: SearchConfig{
			RequestTimeout: 10 * time.Second,
			RankTimeout:    3 * time.Second,
			RateLimit:      120,
		},
		Ranking: RankingConfig{
			Provider: "none",
			Model:    "gpt-4o-mini",
			CacheTTL: 5 * time.Minute,
		},
		Archive: ArchiveConfig{
			Backend:       "none",
			MongoDatabase: "magpie",
			MinioBucket:   "discovery-runs",
		},
	}
}

// Load reads configuration sources and returns a validated Config.
func Load() (*Config, error) {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("MAGPIE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	envString("STORAGE_BACKEND", &c.StorageBackend)
	envString("DATABASE_URL", &c.DatabaseURL)
	envString("REDIS_URL", &c.RedisURL)
	envBool("AUTO_MIGRATE", &c.AutoMigrate)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	envString("DISCOVERY_PORT", &c.Server.DiscoveryPort)
	envString("API_PORT", &c.Server.APIPort)
	envString("GRPC_PORT", &c.Server.GRPCPort)

	envString("JWT_SECRET", &c.Auth.JWTSecret)
	envString("CRON_SECRET", &c.Auth.CronSecret)
	envString("AUTOMATION_SECRET", &c.Auth.AutomationSecret)
	envList("ADMIN_USER_IDS", &c.Auth.AdminIDs)

	envString("DISCOVERY_CRON", &c.Discovery.Cron)
	envString("DISCOVERY_MODE", &c.Discovery.Mode)
	envString("DISCOVERY_FUNCTION_URL", &c.Discovery.FunctionURL)
	envString("DISCOVERY_FUNCTION_KEY", &c.Discovery.FunctionKey)
	envList("DISCOVERY_FEEDS", &c.Discovery.Feeds)
	envList("DISCOVERY_RED_FLAGS", &c.Discovery.RedFlags)

	envString("CURSOR_SECRET", &c.Search.CursorSecret)

	envString("RANKING_PROVIDER", &c.Ranking.Provider)
	envString("RANKING_MODEL", &c.Ranking.Model)
	envString("RANKING_BASE_URL", &c.Ranking.BaseURL)
	envString("RANKING_API_KEY", &c.Ranking.APIKey)

	envString("ARCHIVE_BACKEND", &c.Archive.Backend)
	envString("MONGO_URI", &c.Archive.MongoURI)
	envString("MONGO_DATABASE", &c.Archive.MongoDatabase)
	envString("MINIO_ENDPOINT", &c.Archive.MinioEndpoint)
	envString("MINIO_ACCESS_KEY", &c.Archive.MinioAccessKey)
	envString("MINIO_SECRET_KEY", &c.Archive.MinioSecretKey)
	envString("MINIO_BUCKET", &c.Archive.MinioBucket)
	envBool("MINIO_USE_SSL", &c.Archive.MinioUseSSL)

	ints := []struct {
		key string
		dst *int
	}{
		{"DISCOVERY_WORKERS", &c.Discovery.Workers},
		{"SEARCH_RATE_LIMIT", &c.Search.RateLimit},
	}
	for _, it := range ints {
		if err := envInt(it.key, it.dst); err != nil {
			return err
		}
	}

	if s := os.Getenv("DATABASE_MAX_CONNS"); s != "" {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil || v < 1 {
			return fmt.Errorf("DATABASE_MAX_CONNS must be a positive integer, got %q", s)
		}
		c.DatabaseMaxConns = int32(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DISCOVERY_BUDGET", &c.Discovery.Budget},
		{"DISCOVERY_INGEST_TIMEOUT", &c.Discovery.IngestTimeout},
		{"DISCOVERY_INVOKE_TIMEOUT", &c.Discovery.InvokeTimeout},
		{"SEARCH_REQUEST_TIMEOUT", &c.Search.RequestTimeout},
		{"SEARCH_RANK_TIMEOUT", &c.Search.RankTimeout},
		{"RANKING_CACHE_TTL", &c.Ranking.CacheTTL},
	}
	for _, d := range durations {
		if err := envDuration(d.key, d.dst); err != nil {
			return err
		}
	}

	// Provider-specific key fallbacks, same convention as the LLM clients.
	if c.Ranking.APIKey == "" {
		switch c.Ranking.Provider {
		case "openai":
			c.Ranking.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			c.Ranking.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.StorageBackend)
	}

	if c.Discovery.Budget <= 0 {
		return fmt.Errorf("discovery budget must be positive")
	}
	if c.Discovery.Workers < 1 {
		return fmt.Errorf("DISCOVERY_WORKERS must be at least 1, got %d", c.Discovery.Workers)
	}
	switch c.Discovery.Mode {
	case "http":
		if c.Discovery.FunctionURL == "" {
			return fmt.Errorf("DISCOVERY_FUNCTION_URL is required when DISCOVERY_MODE=http")
		}
	case "rss":
		if len(c.Discovery.Feeds) == 0 {
			return fmt.Errorf("DISCOVERY_FEEDS is required when DISCOVERY_MODE=rss")
		}
	default:
		return fmt.Errorf("DISCOVERY_MODE must be \"http\" or \"rss\", got %q", c.Discovery.Mode)
	}

	if c.Search.RankTimeout >= c.Search.RequestTimeout {
		return fmt.Errorf("search rank timeout (%s) must be shorter than the request timeout (%s)",
			c.Search.RankTimeout, c.Search.RequestTimeout)
	}

	switch c.Ranking.Provider {
	case "none", "":
		c.Ranking.Provider = "none"
	case "openai", "groq":
		if c.Ranking.APIKey == "" {
			return fmt.Errorf("ranking provider %q requires an API key", c.Ranking.Provider)
		}
	default:
		return fmt.Errorf("unknown RANKING_PROVIDER %q", c.Ranking.Provider)
	}

	switch c.Archive.Backend {
	case "none", "":
		c.Archive.Backend = "none"
	case "mongo":
		if c.Archive.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when ARCHIVE_BACKEND=mongo")
		}
	case "minio":
		if c.Archive.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when ARCHIVE_BACKEND=minio")
		}
	default:
		return fmt.Errorf("unknown ARCHIVE_BACKEND %q", c.Archive.Backend)
	}
	return nil
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, s)
	}
	*dst = v
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fmt.Errorf("%s must be a positive duration (e.g. 300s), got %q", key, s)
	}
	*dst = d
	return nil
}

// envList parses a comma-separated list, dropping blanks.
func envList(key string, dst *[]string) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	*dst = SplitList(s)
}

// SplitList splits a comma-separated string into trimmed, non-empty parts.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
