package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel          = "error"
	DefaultJSONLog           = false
	DefaultStartURL          = "https://cr.indeed.com/jobs?q=&l=costa+rica&from=searchOnHP"
	DefaultMaxPages          = 5
	DefaultMaxRecords        = 0 // unlimited
	DefaultEnrich            = true
	DefaultPageSize          = 10
	DefaultHeadless          = false
	DefaultEngine            = EngineChrome
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultTimeout           = 60 * time.Second
	DefaultChallengeAttempts = 5
	DefaultChallengeBackoff  = 2 * time.Second
	DefaultOperatorPrompt    = true
	DefaultNavInterval       = 6 * time.Second
	DefaultSettleMin         = 3 * time.Second
	DefaultSettleMax         = 5 * time.Second
	DefaultScrollPause       = 2 * time.Second
	DefaultRecordMin         = 500 * time.Millisecond
	DefaultRecordMax         = 1500 * time.Millisecond
	DefaultPageMin           = 4 * time.Second
	DefaultPageMax           = 7 * time.Second
	DefaultDescriptionFormat = "text"
	DefaultRegionTag         = "Costa Rica"
	DefaultDeadlineDays      = 30
	DefaultSource            = "indeed_cr"
	DefaultOutputDir         = "."
	DefaultOutputBase        = "indeed_jobs"
	DefaultDebugDir          = "debug"
	DefaultSeenTTL           = 7 * 24 * time.Hour
	DefaultSchedule          = "@every 6h"
	DefaultEnvFile           = ".env"
)

// Session engines.
const (
	EngineChrome = "chrome"
	EngineHTTP   = "http"
)

// DefaultFormats are the file outputs written when none are configured.
var DefaultFormats = []string{"csv", "json"}
