package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Suppress all output except errors")
	pf.Bool("json", false, "Log in JSON format")
	pf.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	pf.String("env-file", DefaultEnvFile, "Load environment variables from this file")
	pf.String("engine", DefaultEngine, "Session engine: chrome or http")
	pf.Bool("headless", DefaultHeadless, "Run Chrome without a window")
	pf.String("chrome-path", "", "Chrome/Chromium executable (default: auto-detect)")
	pf.String("user-agent", "", "Custom user agent string")
	pf.StringSlice("proxy", nil, "HTTP/SOCKS5 proxy; repeat or comma-separate to rotate")
	pf.StringArrayP("header", "H", nil, "Extra request header (\"Key: Value\"), repeatable")
	pf.Duration("timeout", DefaultTimeout, "Navigation timeout")
	pf.StringP("session", "s", "", "Operator session to load cookies from")
}

// RegisterScrapeFlags registers the flags of commands that run the pipeline.
func RegisterScrapeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("url", "u", DefaultStartURL, "Search results URL to start from")
	f.IntP("max-pages", "p", DefaultMaxPages, "Maximum result pages to visit")
	f.IntP("max-records", "n", DefaultMaxRecords, "Stop after this many records (0 = no limit)")
	f.Bool("enrich", DefaultEnrich, "Open each listing's detail view for the full description")
	f.Bool("no-enrich", false, "Listing fields only")
	f.Int("page-size", DefaultPageSize, "Result offset step between pages")

	f.Int("challenge-attempts", DefaultChallengeAttempts, "Reloads allowed while an anti-bot challenge is shown")
	f.Duration("challenge-backoff", DefaultChallengeBackoff, "Initial wait between challenge reloads")
	f.Bool("operator-prompt", DefaultOperatorPrompt, "Ask on the terminal for help when a challenge persists")

	f.Duration("nav-interval", DefaultNavInterval, "Minimum interval between navigations to one host")
	f.Duration("settle-min", DefaultSettleMin, "Minimum wait after a page loads")
	f.Duration("settle-max", DefaultSettleMax, "Maximum wait after a page loads")
	f.Duration("page-delay-min", DefaultPageMin, "Minimum wait between result pages")
	f.Duration("page-delay-max", DefaultPageMax, "Maximum wait between result pages")

	f.String("selectors", "", "YAML file overriding the selector tables")
	f.String("description-format", DefaultDescriptionFormat, "Description format: text or markdown")
	f.String("region-tag", DefaultRegionTag, "Tag added to every record")
	f.Int("deadline-days", DefaultDeadlineDays, "Days after posting used as the application deadline (0 = none)")

	f.StringP("output-dir", "o", DefaultOutputDir, "Directory for output files")
	f.String("output-name", DefaultOutputBase, "Base name of output files")
	f.StringSlice("format", DefaultFormats, "Output formats: csv, json, jsonl")
	f.String("debug-dir", DefaultDebugDir, "Where to write page diagnostics")
	f.String("sqlite", "", "Also upsert records into this SQLite database")
	f.String("postgres", "", "Also upsert records into this PostgreSQL database (DSN)")
	f.String("metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	f.String("redis", "", "Redis address for skipping jobs seen in earlier runs")
	f.Duration("seen-ttl", DefaultSeenTTL, "How long a job stays seen")
}
