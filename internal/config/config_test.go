package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEWSBRIEF_CONFIG", "GEMINI_API_KEY", "GEMINI_MODEL", "DEBUG", "ENABLE_HTTP_MONITORING",
		"MONITORING_PORT", "MAX_RESULTS", "MAX_PER_DOMAIN", "FETCH_WORKERS", "MAX_GEMINI_REQUESTS",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlConfig = `
sources:
  - name: Krebs on Security
    url: https://krebsonsecurity.com/feed/
    category: Security
  - name: Example blog
    url: https://blog.example.com/
    kind: html
filters:
  keywords: [ransomware, AI, "zero-day"]
settings:
  similarity_threshold: 0.85
  max_results: 5
  fetch_backoff: 250ms
  retryable_status_codes: [503]
gemini:
  model: gemini-1.5-pro
`

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", yamlConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "Security", cfg.Sources[0].Category)
	assert.Equal(t, "html", cfg.Sources[1].Kind)
	assert.Equal(t, []string{"ransomware", "AI", "zero-day"}, cfg.Filters.Keywords)

	s := cfg.Settings
	assert.Equal(t, 0.85, s.SimilarityThreshold)
	assert.Equal(t, 5, s.MaxResults)
	assert.Equal(t, 250*time.Millisecond, s.FetchBackoff)
	assert.Equal(t, []int{503}, s.RetryableStatusCodes)

	// untouched tunables keep their defaults
	assert.Equal(t, 2, s.MaxPerDomain)
	assert.Equal(t, 3, s.FetchRetries)
	assert.Equal(t, 15*time.Second, s.FetchTimeout)
	assert.Equal(t, 7, s.RecencyWindowDays)
	assert.Equal(t, DefaultUserAgent, s.UserAgent)

	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 3, cfg.Gemini.MaxRequests)
	assert.False(t, cfg.Gemini.Enabled())
}

func TestLoad_TOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", `
[[sources]]
name = "Hacker News"
url = "https://hnrss.org/frontpage"
category = "Tech"

[filters]
keywords = ["golang", "kubernetes"]

[settings]
max_per_domain = 1
fetch_timeout = "5s"
recency_window_days = 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "https://hnrss.org/frontpage", cfg.Sources[0].URL)
	assert.Equal(t, []string{"golang", "kubernetes"}, cfg.Filters.Keywords)
	assert.Equal(t, 1, cfg.Settings.MaxPerDomain)
	assert.Equal(t, 5*time.Second, cfg.Settings.FetchTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.RecencyWindow())
	assert.Equal(t, 0.8, cfg.Settings.SimilarityThreshold)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Path)
	assert.Empty(t, cfg.Sources)
	assert.Empty(t, cfg.Filters.Keywords)
	assert.Equal(t, Default().Settings, cfg.Settings)
}

func TestLoad_UnparsableFileFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "broken.yaml", "sources: [\n  - url: https://a.example.com\n settings: {")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Sources)
	assert.Equal(t, 10, cfg.Settings.MaxResults)
}

func TestLoad_PathFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "env.yaml", yamlConfig)
	t.Setenv("NEWSBRIEF_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Sources, 2)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", yamlConfig)

	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("DEBUG", "true")
	t.Setenv("MAX_RESULTS", "12")
	t.Setenv("MAX_PER_DOMAIN", "0")
	t.Setenv("FETCH_WORKERS", "not-a-number")
	t.Setenv("MAX_GEMINI_REQUESTS", "7")
	t.Setenv("ENABLE_HTTP_MONITORING", "true")
	t.Setenv("MONITORING_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Gemini.Enabled())
	assert.True(t, cfg.Debug)
	assert.Equal(t, 12, cfg.Settings.MaxResults)
	assert.Equal(t, 0, cfg.Settings.MaxPerDomain)
	assert.Equal(t, 8, cfg.Settings.Workers, "invalid env value is ignored")
	assert.Equal(t, 7, cfg.Gemini.MaxRequests)
	assert.True(t, cfg.HTTPMonitoring)
	assert.Equal(t, "9100", cfg.MonitoringPort)
}

func TestLoad_InvalidTunables(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "bad.yaml", `
settings:
  similarity_threshold: 1.5
  workers: 0
  retryable_status_codes: [503, 42]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarity_threshold")
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "42")
}

func TestLoadFile_Strict(t *testing.T) {
	clearEnv(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)

	path := writeFile(t, "bad.toml", "[settings\nmax_results = ")
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "parse toml config")
}

func TestDefault_Valid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
