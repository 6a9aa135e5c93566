// Package config provides unified configuration loading for the analyzer.
// Supports YAML files, .env files, environment variables and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Provider names for the vision and analysis services.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config holds all configuration for the analyzer.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Vision        ModelConfig         `yaml:"vision"`
	Analysis      ModelConfig         `yaml:"analysis"`
	Search        SearchConfig        `yaml:"search"`
	Profile       ProfileConfig       `yaml:"profile"`
	Lookup        LookupConfig        `yaml:"lookup"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes" validate:"gt=0"`
}

// ExtractionConfig controls per-page text extraction.
type ExtractionConfig struct {
	DPI             float64 `yaml:"dpi" validate:"gte=72,lte=600"`
	MinChars        int     `yaml:"min_chars" validate:"gte=0"`
	MaxGarbledRatio float64 `yaml:"max_garbled_ratio" validate:"gte=0,lte=1"`
	PageConcurrency int     `yaml:"page_concurrency" validate:"gte=1,lte=32"`
	ForceOCR        bool    `yaml:"force_ocr"`
}

// ModelConfig holds settings for an LLM-backed service.
type ModelConfig struct {
	Provider   string        `yaml:"provider" validate:"oneof=openrouter gemini"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// SearchConfig holds web search settings.
type SearchConfig struct {
	APIKey     string        `yaml:"api_key"`
	CX         string        `yaml:"cx"`
	BaseURL    string        `yaml:"base_url" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// ProfileConfig holds profile-fetch settings.
type ProfileConfig struct {
	APIKey     string        `yaml:"api_key"`
	AccountID  string        `yaml:"account_id"`
	BaseURL    string        `yaml:"base_url" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// LookupConfig holds founder lookup settings.
type LookupConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Domain            string  `yaml:"domain" validate:"required,hostname"`
	ProfilePathPrefix string  `yaml:"profile_path_prefix" validate:"required,startswith=/"`
	MaxResults        int     `yaml:"max_results" validate:"gte=1,lte=10"`
	MatchThreshold    float64 `yaml:"match_threshold" validate:"gt=0,lte=1"`
	Concurrency       int     `yaml:"concurrency" validate:"gte=1,lte=16"`
}

// CacheConfig holds profile cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver" validate:"oneof=none memory redis"` // none, memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries" validate:"gte=0"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" validate:"oneof=trace debug info warn warning error fatal"`
	LogFormat   string `yaml:"log_format" validate:"oneof=json console"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     10 * time.Minute,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   10 * time.Minute,
			GracefulShutdown: 15 * time.Second,
			MaxUploadBytes:   50 << 20,
		},
		Extraction: ExtractionConfig{
			DPI:             300,
			MinChars:        16,
			MaxGarbledRatio: 0.10,
			PageConcurrency: 4,
		},
		Vision: ModelConfig{
			Provider:   ProviderOpenRouter,
			Timeout:    90 * time.Second,
			MaxRetries: 3,
		},
		Analysis: ModelConfig{
			Provider:   ProviderOpenRouter,
			Timeout:    180 * time.Second,
			MaxRetries: 3,
		},
		Search: SearchConfig{
			BaseURL:    "https://www.googleapis.com/customsearch/v1",
			Timeout:    30 * time.Second,
			MaxRetries: 2,
		},
		Profile: ProfileConfig{
			BaseURL:    "https://api22.unipile.com:15236",
			Timeout:    30 * time.Second,
			MaxRetries: 2,
		},
		Lookup: LookupConfig{
			Enabled:           true,
			Domain:            "linkedin.com",
			ProfilePathPrefix: "/in/",
			MaxResults:        3,
			MatchThreshold:    0.6,
			Concurrency:       3,
		},
		Cache: CacheConfig{
			Driver:     "none",
			TTL:        24 * time.Hour,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "pitchdeck:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "pitchdeck-analyzer",
		},
	}
}

var validate = validator.New()

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Cache.Driver == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for the redis cache driver")
	}

	return nil
}

// CheckModelCredentials verifies the mandatory OCR and analysis credentials.
// Founder lookup credentials are optional and checked separately.
func (c *Config) CheckModelCredentials() error {
	if c.Vision.APIKey == "" {
		return fmt.Errorf("vision api key is required (provider %s)", c.Vision.Provider)
	}
	if c.Analysis.APIKey == "" {
		return fmt.Errorf("analysis api key is required (provider %s)", c.Analysis.Provider)
	}
	return nil
}

// SearchEnabled reports whether web search credentials are configured.
func (c *Config) SearchEnabled() bool {
	return c.Search.APIKey != "" && c.Search.CX != ""
}

// ProfileEnabled reports whether profile-fetch credentials are configured.
func (c *Config) ProfileEnabled() bool {
	return c.Profile.APIKey != "" && c.Profile.AccountID != ""
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("VISION_PROVIDER"); v != "" {
		cfg.Vision.Provider = v
	}

	if v := os.Getenv("ANALYSIS_PROVIDER"); v != "" {
		cfg.Analysis.Provider = v
	}

	applyModelKey(&cfg.Vision)
	applyModelKey(&cfg.Analysis)

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Vision.Model = v
		cfg.Analysis.Model = v
	}

	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}

	if v := os.Getenv("GOOGLE_CX"); v != "" {
		cfg.Search.CX = v
	}

	if v := os.Getenv("UNIPILE_API_KEY"); v != "" {
		cfg.Profile.APIKey = v
	}

	if v := os.Getenv("UNIPILE_ACCOUNT_ID"); v != "" {
		cfg.Profile.AccountID = v
	}

	if v := os.Getenv("UNIPILE_BASE_URL"); v != "" {
		cfg.Profile.BaseURL = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		opts, err := redis.ParseURL(v)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		cfg.Cache.Redis.Addr = opts.Addr
		cfg.Cache.Redis.Password = opts.Password
		cfg.Cache.Redis.DB = opts.DB
	}

	if v, ok := envBool("FORCE_OCR"); ok {
		cfg.Extraction.ForceOCR = v
	}

	if v, ok := envBool("LOOKUP_FOUNDERS"); ok {
		cfg.Lookup.Enabled = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	return nil
}

// applyModelKey fills the API key matching the configured provider.
func applyModelKey(m *ModelConfig) {
	if m.APIKey != "" {
		return
	}
	switch m.Provider {
	case ProviderGemini:
		m.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		m.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
