package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/law-makers/jobcrawl/internal/utils/headers"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool
	Quiet    bool

	// Run
	StartURL   string
	MaxPages   int
	MaxRecords int
	Enrich     bool
	PageSize   int

	// Browser
	Engine      string
	Headless    bool
	ChromePath  string
	UserAgent   string
	Proxies     []string
	Headers     map[string]string
	Timeout     time.Duration
	SessionName string

	// Challenge handling
	ChallengeAttempts int
	ChallengeBackoff  time.Duration
	OperatorPrompt    bool

	// Pacing
	NavInterval time.Duration
	SettleMin   time.Duration
	SettleMax   time.Duration
	ScrollPause time.Duration
	RecordMin   time.Duration
	RecordMax   time.Duration
	PageMin     time.Duration
	PageMax     time.Duration

	// Extraction
	SelectorsFile     string
	DescriptionFormat string
	RegionTag         string
	DeadlineDays      int
	Source            string

	// Output
	OutputDir   string
	OutputBase  string
	Formats     []string
	DebugDir    string
	SQLitePath  string
	PostgresDSN string
	MetricsFile string

	// Cross-run dedup
	RedisAddr string
	SeenTTL   time.Duration

	// watch
	Schedule string
}

// Default returns a Config holding the built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		StartURL:          DefaultStartURL,
		MaxPages:          DefaultMaxPages,
		MaxRecords:        DefaultMaxRecords,
		Enrich:            DefaultEnrich,
		PageSize:          DefaultPageSize,
		Engine:            DefaultEngine,
		Headless:          DefaultHeadless,
		UserAgent:         DefaultUserAgent,
		Headers:           map[string]string{},
		Timeout:           DefaultTimeout,
		ChallengeAttempts: DefaultChallengeAttempts,
		ChallengeBackoff:  DefaultChallengeBackoff,
		OperatorPrompt:    DefaultOperatorPrompt,
		NavInterval:       DefaultNavInterval,
		SettleMin:         DefaultSettleMin,
		SettleMax:         DefaultSettleMax,
		ScrollPause:       DefaultScrollPause,
		RecordMin:         DefaultRecordMin,
		RecordMax:         DefaultRecordMax,
		PageMin:           DefaultPageMin,
		PageMax:           DefaultPageMax,
		DescriptionFormat: DefaultDescriptionFormat,
		RegionTag:         DefaultRegionTag,
		DeadlineDays:      DefaultDeadlineDays,
		Source:            DefaultSource,
		OutputDir:         DefaultOutputDir,
		OutputBase:        DefaultOutputBase,
		Formats:           append([]string(nil), DefaultFormats...),
		DebugDir:          DefaultDebugDir,
		SeenTTL:           DefaultSeenTTL,
		Schedule:          DefaultSchedule,
	}
}

// Load builds a Config by combining defaults, an optional .env file, environment variables, and CLI flags.
// Caller should pass the executing *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	envFile := DefaultEnvFile
	explicit := false
	if cmd != nil {
		if f := cmd.Flags().Lookup("env-file"); f != nil && f.Changed {
			envFile = f.Value.String()
			explicit = true
		}
	}
	if err := loadEnvFile(envFile, explicit); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if cmd != nil {
		if err := cfg.applyFlags(cmd); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadEnvFile reads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing default file is fine.
func loadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || (!required && errors.Is(err, fs.ErrNotExist)) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	get := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}
	var errs []error
	str := func(dst *string, keys ...string) {
		if v, ok := get(keys...); ok {
			*dst = v
		}
	}
	num := func(dst *int, keys ...string) {
		if v, ok := get(keys...); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", keys[0], v))
				return
			}
			*dst = n
		}
	}
	boolean := func(dst *bool, keys ...string) {
		if v, ok := get(keys...); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a boolean", keys[0], v))
				return
			}
			*dst = b
		}
	}
	dur := func(dst *time.Duration, keys ...string) {
		if v, ok := get(keys...); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a duration", keys[0], v))
				return
			}
			*dst = d
		}
	}
	list := func(dst *[]string, keys ...string) {
		if v, ok := get(keys...); ok {
			*dst = splitList(v)
		}
	}

	str(&c.LogLevel, "CRAWL_LOG_LEVEL")
	str(&c.StartURL, "CRAWL_START_URL")
	num(&c.MaxPages, "CRAWL_MAX_PAGES", "MAX_PAGES")
	num(&c.MaxRecords, "CRAWL_MAX_RECORDS", "MAX_JOBS")
	boolean(&c.Enrich, "CRAWL_ENRICH")
	str(&c.Engine, "CRAWL_ENGINE")
	boolean(&c.Headless, "CRAWL_HEADLESS")
	str(&c.ChromePath, "CRAWL_CHROME_PATH")
	str(&c.UserAgent, "CRAWL_USER_AGENT")
	list(&c.Proxies, "CRAWL_PROXY", "CRAWL_PROXIES")
	dur(&c.Timeout, "CRAWL_TIMEOUT")
	str(&c.SessionName, "CRAWL_SESSION")
	num(&c.ChallengeAttempts, "CRAWL_CHALLENGE_ATTEMPTS")
	dur(&c.ChallengeBackoff, "CRAWL_CHALLENGE_BACKOFF")
	boolean(&c.OperatorPrompt, "CRAWL_OPERATOR_PROMPT")
	dur(&c.NavInterval, "CRAWL_NAV_INTERVAL")
	str(&c.SelectorsFile, "CRAWL_SELECTORS_FILE")
	str(&c.DescriptionFormat, "CRAWL_DESCRIPTION_FORMAT")
	str(&c.RegionTag, "CRAWL_REGION_TAG")
	num(&c.DeadlineDays, "CRAWL_DEADLINE_DAYS")
	str(&c.Source, "CRAWL_SOURCE")
	str(&c.OutputDir, "CRAWL_OUTPUT_DIR")
	list(&c.Formats, "CRAWL_FORMATS")
	str(&c.DebugDir, "CRAWL_DEBUG_DIR")
	str(&c.SQLitePath, "CRAWL_SQLITE_PATH")
	str(&c.PostgresDSN, "CRAWL_POSTGRES_DSN", "DATABASE_URL")
	str(&c.MetricsFile, "CRAWL_METRICS_FILE")
	str(&c.RedisAddr, "CRAWL_REDIS_ADDR", "REDIS_ADDR")
	dur(&c.SeenTTL, "CRAWL_SEEN_TTL")
	str(&c.Schedule, "CRAWL_SCHEDULE")
	if v, ok := get("CRAWL_HEADERS"); ok {
		h, err := headers.ParseHeaders(strings.Split(v, ";"))
		if err != nil {
			errs = append(errs, fmt.Errorf("CRAWL_HEADERS: %w", err))
		}
		for k, val := range h {
			c.Headers[k] = val
		}
	}

	return errors.Join(errs...)
}

// applyFlags copies every flag the user set explicitly. Flags left at their
// default never override the environment.
func (c *Config) applyFlags(cmd *cobra.Command) error {
	fl := cmd.Flags()
	changed := func(name string) bool {
		f := fl.Lookup(name)
		return f != nil && f.Changed
	}
	var errs []error
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	str := func(name string, dst *string) {
		if changed(name) {
			v, err := fl.GetString(name)
			keep(err)
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if changed(name) {
			v, err := fl.GetInt(name)
			keep(err)
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if changed(name) {
			v, err := fl.GetBool(name)
			keep(err)
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if changed(name) {
			v, err := fl.GetDuration(name)
			keep(err)
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if changed(name) {
			v, err := fl.GetStringSlice(name)
			keep(err)
			*dst = v
		}
	}

	str("log-level", &c.LogLevel)
	boolean("json", &c.JSONLog)
	boolean("quiet", &c.Quiet)
	if changed("verbose") {
		if v, _ := fl.GetBool("verbose"); v {
			c.LogLevel = "debug"
		}
	}

	str("url", &c.StartURL)
	num("max-pages", &c.MaxPages)
	num("max-records", &c.MaxRecords)
	boolean("enrich", &c.Enrich)
	if changed("no-enrich") {
		if v, _ := fl.GetBool("no-enrich"); v {
			c.Enrich = false
		}
	}
	num("page-size", &c.PageSize)
	str("engine", &c.Engine)
	boolean("headless", &c.Headless)
	str("chrome-path", &c.ChromePath)
	str("user-agent", &c.UserAgent)
	list("proxy", &c.Proxies)
	if changed("header") {
		raw, err := fl.GetStringArray("header")
		keep(err)
		h, err := headers.ParseHeaders(raw)
		keep(err)
		for k, v := range h {
			c.Headers[k] = v
		}
	}
	dur("timeout", &c.Timeout)
	str("session", &c.SessionName)
	num("challenge-attempts", &c.ChallengeAttempts)
	dur("challenge-backoff", &c.ChallengeBackoff)
	boolean("operator-prompt", &c.OperatorPrompt)
	dur("nav-interval", &c.NavInterval)
	dur("settle-min", &c.SettleMin)
	dur("settle-max", &c.SettleMax)
	dur("page-delay-min", &c.PageMin)
	dur("page-delay-max", &c.PageMax)
	str("selectors", &c.SelectorsFile)
	str("description-format", &c.DescriptionFormat)
	str("region-tag", &c.RegionTag)
	num("deadline-days", &c.DeadlineDays)
	str("output-dir", &c.OutputDir)
	str("output-name", &c.OutputBase)
	list("format", &c.Formats)
	str("debug-dir", &c.DebugDir)
	str("sqlite", &c.SQLitePath)
	str("postgres", &c.PostgresDSN)
	str("metrics-file", &c.MetricsFile)
	str("redis", &c.RedisAddr)
	dur("seen-ttl", &c.SeenTTL)
	str("schedule", &c.Schedule)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
