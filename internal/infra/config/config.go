package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Tracker   TrackerConfig   `yaml:"tracker"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	LLM       LLMConfig       `yaml:"llm"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Valkey    ValkeyConfig    `yaml:"valkey"`
	Storage   StorageConfig   `yaml:"storage"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	TrustedProxies []string        `yaml:"trustedProxies"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	Secret          string        `yaml:"secret"`
	TokenTTL        time.Duration `yaml:"tokenTtl"`
	RefreshTokenTTL time.Duration `yaml:"refreshTokenTtl"`
	AdminUsernames  []string      `yaml:"adminUsernames"`
}

// TrackerConfig controls the crop tracking backend.
type TrackerConfig struct {
	Timezone        string        `yaml:"timezone"`
	PredictionTTL   time.Duration `yaml:"predictionTtl"`
	MaxPhotoBytes   int64         `yaml:"maxPhotoBytes"`
	LogGraceDays    int           `yaml:"logGraceDays"`
	SeedCatalogPath string        `yaml:"seedCatalogPath"`
}

// DashboardConfig controls the crop dashboard and its backend client.
type DashboardConfig struct {
	BackendBaseURL  string        `yaml:"backendBaseUrl"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	SyncConcurrency int           `yaml:"syncConcurrency"`
	RelatedLimit    int           `yaml:"relatedLimit"`
	ListPath        string        `yaml:"listPath"`
	Prompt          string        `yaml:"prompt"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey          string        `yaml:"apiKey"`
	BaseURL         string        `yaml:"baseUrl"`
	Model           string        `yaml:"model"`
	Temperature     float32       `yaml:"temperature"`
	MaxTokens       int           `yaml:"maxTokens"`
	MaxPromptTokens int           `yaml:"maxPromptTokens"`
	Encoding        string        `yaml:"encoding"`
	Timeout         time.Duration `yaml:"timeout"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the prediction cache and job queue.
type ValkeyConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	CachePrefix string `yaml:"cachePrefix"`
	QueueKey    string `yaml:"queueKey"`
}

// StorageConfig selects where log photos are kept.
type StorageConfig struct {
	S3Enabled bool   `yaml:"s3Enabled"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Region    string `yaml:"region"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Location resolves the tracker timezone used for day arithmetic.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Tracker.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString("HTTP_ADDRESS", &cfg.HTTP.Address)
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_TRUSTED_PROXIES"); v != "" {
		cfg.HTTP.TrustedProxies = splitList(v)
	}
	setBool("HTTP_RATE_LIMIT_ENABLED", &cfg.HTTP.RateLimit.Enabled)
	setInt("HTTP_RATE_LIMIT_RPM", &cfg.HTTP.RateLimit.RequestsPerMinute)
	setInt("HTTP_RATE_LIMIT_BURST", &cfg.HTTP.RateLimit.Burst)
	setBool("HTTP_RETRY_ENABLED", &cfg.HTTP.Retry.Enabled)
	setInt("HTTP_RETRY_MAX_ATTEMPTS", &cfg.HTTP.Retry.MaxAttempts)
	setDuration("HTTP_RETRY_BASE_BACKOFF", &cfg.HTTP.Retry.BaseBackoff)

	setString("AUTH_SECRET", &cfg.Auth.Secret)
	setDuration("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL)
	setDuration("AUTH_REFRESH_TOKEN_TTL", &cfg.Auth.RefreshTokenTTL)
	if v := os.Getenv("AUTH_ADMIN_USERNAMES"); v != "" {
		cfg.Auth.AdminUsernames = splitList(v)
	}

	setString("TRACKER_TIMEZONE", &cfg.Tracker.Timezone)
	setDuration("TRACKER_PREDICTION_TTL", &cfg.Tracker.PredictionTTL)
	if v := os.Getenv("TRACKER_MAX_PHOTO_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Tracker.MaxPhotoBytes = parsed
		}
	}
	setInt("TRACKER_LOG_GRACE_DAYS", &cfg.Tracker.LogGraceDays)
	setString("SEED_CATALOG_PATH", &cfg.Tracker.SeedCatalogPath)

	setString("DASHBOARD_BACKEND_URL", &cfg.Dashboard.BackendBaseURL)
	setDuration("DASHBOARD_REQUEST_TIMEOUT", &cfg.Dashboard.RequestTimeout)
	setInt("DASHBOARD_SYNC_CONCURRENCY", &cfg.Dashboard.SyncConcurrency)
	setInt("DASHBOARD_RELATED_LIMIT", &cfg.Dashboard.RelatedLimit)
	setString("DASHBOARD_PROMPT", &cfg.Dashboard.Prompt)

	setString("LLM_API_KEY", &cfg.LLM.APIKey)
	setString("LLM_BASE_URL", &cfg.LLM.BaseURL)
	setString("LLM_MODEL", &cfg.LLM.Model)
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	setInt("LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	setInt("LLM_MAX_PROMPT_TOKENS", &cfg.LLM.MaxPromptTokens)
	setDuration("LLM_TIMEOUT", &cfg.LLM.Timeout)

	setString("POSTGRES_DSN", &cfg.Postgres.DSN)
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}

	setBool("VALKEY_ENABLED", &cfg.Valkey.Enabled)
	setString("VALKEY_ADDR", &cfg.Valkey.Addr)

	setBool("S3_ENABLED", &cfg.Storage.S3Enabled)
	setString("S3_ENDPOINT", &cfg.Storage.Endpoint)
	setString("S3_BUCKET", &cfg.Storage.Bucket)
	setString("S3_ACCESS_KEY", &cfg.Storage.AccessKey)
	setString("S3_SECRET_KEY", &cfg.Storage.SecretKey)
	setString("S3_REGION", &cfg.Storage.Region)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NonIdempotentRoutes are the POST routes the retry middleware leaves
// alone: replaying them after a committed write would duplicate the crop
// or log, or answer with a conflict for work that actually succeeded.
var NonIdempotentRoutes = []string{
	"/api/auth/register",
	"/api/crops",
	"/api/crops/:id/logs",
	"/api/crops/:id/actions",
	"/api/crops/:id/logs/:day/photo",
	"/api/crops/:id/harvest",
	"/api/dashboard/crops/:id/logs",
	"/api/dashboard/crops/:id/logs/sync",
	"/dashboard/crops/:id/delete",
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: []string{"*"},
			TrustedProxies: []string{"127.0.0.1", "::1"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude:     append([]string(nil), NonIdempotentRoutes...),
			},
		},
		Auth: AuthConfig{
			Secret:          "change-me",
			TokenTTL:        time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Tracker: TrackerConfig{
			Timezone:      "UTC",
			PredictionTTL: 10 * time.Minute,
			MaxPhotoBytes: 10 << 20,
			LogGraceDays:  2,
		},
		Dashboard: DashboardConfig{
			RequestTimeout:  10 * time.Second,
			SyncConcurrency: 4,
			RelatedLimit:    6,
			ListPath:        "/dashboard",
			Prompt:          "You are an experienced microgreens grower. Given the crop status, give one short, practical tip (max two sentences) to improve the final yield.",
		},
		LLM: LLMConfig{
			Model:           "gpt-4o-mini",
			Temperature:     0.4,
			MaxTokens:       160,
			MaxPromptTokens: 1500,
			Encoding:        "cl100k_base",
			Timeout:         20 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
			MinConns: 0,
		},
		Valkey: ValkeyConfig{
			CachePrefix: "microgreens:prediction",
			QueueKey:    "microgreens:jobs",
		},
		Storage: StorageConfig{
			Bucket: "microgreens-photos",
			Region: "auto",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth.secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth token ttls must be positive")
	}
	if _, err := time.LoadLocation(c.Tracker.Timezone); err != nil {
		return fmt.Errorf("tracker.timezone: %w", err)
	}
	if c.Tracker.PredictionTTL < 0 {
		return errors.New("tracker.predictionTtl cannot be negative")
	}
	if c.Tracker.MaxPhotoBytes <= 0 {
		return errors.New("tracker.maxPhotoBytes must be positive")
	}
	if c.Tracker.LogGraceDays < 0 {
		return errors.New("tracker.logGraceDays cannot be negative")
	}
	if c.Dashboard.RequestTimeout <= 0 {
		return errors.New("dashboard.requestTimeout must be positive")
	}
	if c.Dashboard.SyncConcurrency <= 0 {
		return errors.New("dashboard.syncConcurrency must be positive")
	}
	if c.Dashboard.RelatedLimit < 0 {
		return errors.New("dashboard.relatedLimit cannot be negative")
	}
	if c.LLM.MaxPromptTokens < 0 {
		return errors.New("llm.maxPromptTokens cannot be negative")
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey is enabled")
	}
	if c.Storage.S3Enabled {
		if strings.TrimSpace(c.Storage.Endpoint) == "" || strings.TrimSpace(c.Storage.Bucket) == "" {
			return errors.New("storage.endpoint and storage.bucket are required when s3 is enabled")
		}
	}
	return nil
}
