package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "scrape"}
	RegisterFlags(cmd)
	RegisterScrapeFlags(cmd)
	return cmd
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, validate(Default()))
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(mapLookup(map[string]string{
		"MAX_PAGES":           "8",
		"MAX_JOBS":            "40",
		"CRAWL_MAX_RECORDS":   "25",
		"CRAWL_HEADLESS":      "true",
		"CRAWL_PROXY":         "http://a:1, http://b:2",
		"CRAWL_SEEN_TTL":      "48h",
		"CRAWL_HEADERS":       "Referer: https://cr.indeed.com/; DNT: 1",
		"CRAWL_FORMATS":       "jsonl",
		"DATABASE_URL":        "postgres://localhost/jobs",
		"CRAWL_START_URL":     "  ",
		"CRAWL_REDIS_ADDR":    "redis:6379",
		"CRAWL_OUTPUT_DIR":    "/tmp/out",
		"CRAWL_DEADLINE_DAYS": "0",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.MaxPages, "MAX_PAGES is honoured")
	assert.Equal(t, 25, cfg.MaxRecords, "CRAWL_ wins over the legacy name")
	assert.True(t, cfg.Headless)
	assert.Equal(t, []string{"http://a:1", "http://b:2"}, cfg.Proxies)
	assert.Equal(t, 48*time.Hour, cfg.SeenTTL)
	assert.Equal(t, "https://cr.indeed.com/", cfg.Headers["Referer"])
	assert.Equal(t, "1", cfg.Headers["Dnt"], "header names are canonicalized")
	assert.Equal(t, []string{"jsonl"}, cfg.Formats)
	assert.Equal(t, "postgres://localhost/jobs", cfg.PostgresDSN)
	assert.Equal(t, DefaultStartURL, cfg.StartURL, "blank values are ignored")
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.DeadlineDays)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(mapLookup(map[string]string{
		"MAX_PAGES":     "five",
		"CRAWL_ENRICH":  "maybe",
		"CRAWL_TIMEOUT": "soon",
		"CRAWL_SESSION": "operator",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRAWL_MAX_PAGES")
	assert.Contains(t, err.Error(), "CRAWL_ENRICH")
	assert.Contains(t, err.Error(), "CRAWL_TIMEOUT")
	assert.Equal(t, "operator", cfg.SessionName, "good values still apply")
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	cmd := newScrapeCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--max-pages", "2",
		"--no-enrich",
		"-H", "X-Test: yes",
		"--format", "csv,jsonl",
		"--proxy", "socks5://p:1080",
		"-v",
	}))

	cfg := Default()
	cfg.MaxRecords = 99
	require.NoError(t, cfg.applyFlags(cmd))

	assert.Equal(t, 2, cfg.MaxPages)
	assert.Equal(t, 99, cfg.MaxRecords, "unset flag keeps the earlier layer")
	assert.False(t, cfg.Enrich)
	assert.Equal(t, "yes", cfg.Headers["X-Test"])
	assert.Equal(t, []string{"csv", "jsonl"}, cfg.Formats)
	assert.Equal(t, []string{"socks5://p:1080"}, cfg.Proxies)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative start url", func(c *Config) { c.StartURL = "/jobs?q=" }},
		{"zero pages", func(c *Config) { c.MaxPages = 0 }},
		{"negative records", func(c *Config) { c.MaxRecords = -1 }},
		{"unknown engine", func(c *Config) { c.Engine = "firefox" }},
		{"inverted settle range", func(c *Config) { c.SettleMin, c.SettleMax = 5*time.Second, time.Second }},
		{"unknown description format", func(c *Config) { c.DescriptionFormat = "pdf" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"no challenge attempts", func(c *Config) { c.ChallengeAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, validate(cfg))
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	const key = "CRAWL_REGION_TAG"
	if _, ok := os.LookupEnv(key); ok {
		t.Skipf("%s already set", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), "jobcrawl.env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=Guanacaste\n"), 0o600))

	cmd := newScrapeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--env-file", path, "--max-pages", "3"}))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	assert.Equal(t, "Guanacaste", cfg.RegionTag)
	assert.Equal(t, 3, cfg.MaxPages)
}

func TestLoadFailsOnMissingExplicitEnvFile(t *testing.T) {
	cmd := newScrapeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--env-file", filepath.Join(t.TempDir(), "nope.env")}))

	_, err := Load(cmd)
	assert.Error(t, err)
}
