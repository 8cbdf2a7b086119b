// Package config loads the run configuration: the source list, the keyword
// filter and the pipeline tunables. The document may be YAML or TOML; values
// missing from it fall back to defaults and a few can be overridden from the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/newsbrief/internal/logger"
)

const (
	DefaultPath      = "configs/config.yaml"
	DefaultUserAgent = "Mozilla/5.0 (compatible; RSS-Bot/1.0)"
	DefaultModel     = "gemini-1.5-flash"
)

type SourceConfig struct {
	Name     string `yaml:"name" toml:"name"`
	URL      string `yaml:"url" toml:"url"`
	Category string `yaml:"category" toml:"category"`
	Kind     string `yaml:"kind" toml:"kind"` // rss (default) or html
}

type Filters struct {
	Keywords []string `yaml:"keywords" toml:"keywords"`
}

// Settings are the pipeline tunables.
type Settings struct {
	SimilarityThreshold  float64       `yaml:"similarity_threshold" toml:"similarity_threshold"`
	MaxPerDomain         int           `yaml:"max_per_domain" toml:"max_per_domain"` // 0 = no cap
	MaxResults           int           `yaml:"max_results" toml:"max_results"`
	FetchRetries         int           `yaml:"fetch_retries" toml:"fetch_retries"`
	FetchBackoff         time.Duration `yaml:"fetch_backoff" toml:"fetch_backoff"`
	FetchTimeout         time.Duration `yaml:"fetch_timeout" toml:"fetch_timeout"`
	RetryableStatusCodes []int         `yaml:"retryable_status_codes" toml:"retryable_status_codes"`
	RecencyWindowDays    int           `yaml:"recency_window_days" toml:"recency_window_days"` // 0 = no cutoff
	Workers              int           `yaml:"workers" toml:"workers"`
	RunTimeout           time.Duration `yaml:"run_timeout" toml:"run_timeout"`
	HostRate             float64       `yaml:"host_rate" toml:"host_rate"` // requests per second per host, 0 = unlimited
	HostBurst            int           `yaml:"host_burst" toml:"host_burst"`
	UserAgent            string        `yaml:"user_agent" toml:"user_agent"`
}

// GeminiConfig enables optional excerpt generation for highlights.
type GeminiConfig struct {
	APIKey      string        `yaml:"api_key" toml:"api_key"`
	Model       string        `yaml:"model" toml:"model"`
	MaxRequests int           `yaml:"max_requests" toml:"max_requests"` // per run, 0 = unlimited
	CacheTTL    time.Duration `yaml:"cache_ttl" toml:"cache_ttl"`
}

func (g GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

type Config struct {
	Sources  []SourceConfig `yaml:"sources" toml:"sources"`
	Filters  Filters        `yaml:"filters" toml:"filters"`
	Settings Settings       `yaml:"settings" toml:"settings"`
	Gemini   GeminiConfig   `yaml:"gemini" toml:"gemini"`

	// Set by Load, never read from the document.
	Path           string `yaml:"-" toml:"-"`
	Debug          bool   `yaml:"-" toml:"-"`
	HTTPMonitoring bool   `yaml:"-" toml:"-"`
	MonitoringPort string `yaml:"-" toml:"-"`
}

// Default returns the configuration used when no document is available.
func Default() *Config {
	return &Config{
		Settings: Settings{
			SimilarityThreshold:  0.8,
			MaxPerDomain:         2,
			MaxResults:           10,
			FetchRetries:         3,
			FetchBackoff:         time.Second,
			FetchTimeout:         15 * time.Second,
			RetryableStatusCodes: []int{429, 500, 502, 503, 504},
			RecencyWindowDays:    7,
			Workers:              8,
			RunTimeout:           2 * time.Minute,
			HostRate:             2,
			HostBurst:            2,
			UserAgent:            DefaultUserAgent,
		},
		Gemini: GeminiConfig{
			Model:       DefaultModel,
			MaxRequests: 3,
			CacheTTL:    24 * time.Hour,
		},
		MonitoringPort: "8080",
	}
}

// Load reads the document at path (NEWSBRIEF_CONFIG or DefaultPath when path
// is empty) and applies environment overrides. A missing or unreadable
// document is not an error: it is logged and the defaults, with no sources
// and no keywords, are used instead. Only out-of-range tunables fail.
func Load(path string) (*Config, error) {
	if path == "" {
		path = getEnvOrDefault("NEWSBRIEF_CONFIG", DefaultPath)
	}

	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		logger.Warn("configuration not loaded, using defaults", "path", path, "error", err)
		cfg = Default()
	} else {
		cfg.Path = path
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// LoadFile is Load without the fallback: a document that cannot be read or
// decoded is returned as an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.Path = path
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse toml config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	c.Gemini.Model = getEnvOrDefault("GEMINI_MODEL", c.Gemini.Model)

	if debug := os.Getenv("DEBUG"); debug == "true" {
		c.Debug = true
	}
	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		c.HTTPMonitoring = true
	}
	c.MonitoringPort = getEnvOrDefault("MONITORING_PORT", c.MonitoringPort)

	if val := getEnvIntOrDefault("MAX_RESULTS", 0); val > 0 {
		c.Settings.MaxResults = val
	}
	if val := getEnvIntOrDefault("MAX_PER_DOMAIN", -1); val >= 0 {
		c.Settings.MaxPerDomain = val
	}
	if val := getEnvIntOrDefault("FETCH_WORKERS", 0); val > 0 {
		c.Settings.Workers = val
	}
	if val := getEnvIntOrDefault("MAX_GEMINI_REQUESTS", -1); val >= 0 {
		c.Gemini.MaxRequests = val
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// RecencyWindow is the recency cutoff as a duration.
func (c *Config) RecencyWindow() time.Duration {
	return time.Duration(c.Settings.RecencyWindowDays) * 24 * time.Hour
}

func (c *Config) Validate() error {
	s := c.Settings
	var errs []error

	if s.SimilarityThreshold <= 0 || s.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity_threshold must be in (0, 1], got %v", s.SimilarityThreshold))
	}
	if s.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("max_results must be positive, got %d", s.MaxResults))
	}
	if s.MaxPerDomain < 0 {
		errs = append(errs, fmt.Errorf("max_per_domain must not be negative, got %d", s.MaxPerDomain))
	}
	if s.FetchRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch_retries must not be negative, got %d", s.FetchRetries))
	}
	if s.FetchBackoff < 0 || s.FetchTimeout < 0 || s.RunTimeout < 0 {
		errs = append(errs, errors.New("fetch_backoff, fetch_timeout and run_timeout must not be negative"))
	}
	if s.RecencyWindowDays < 0 {
		errs = append(errs, fmt.Errorf("recency_window_days must not be negative, got %d", s.RecencyWindowDays))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", s.Workers))
	}
	for _, code := range s.RetryableStatusCodes {
		if code < 100 || code > 599 {
			errs = append(errs, fmt.Errorf("retryable_status_codes: invalid HTTP status %d", code))
		}
	}
	if c.Gemini.MaxRequests < 0 {
		errs = append(errs, fmt.Errorf("gemini.max_requests must not be negative, got %d", c.Gemini.MaxRequests))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
