package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

func validate(c *Config) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level %q: %w", c.LogLevel, err))
	}
	if u, err := url.Parse(c.StartURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("start URL %q must be an absolute http(s) URL", c.StartURL))
	}
	check(c.MaxPages >= 1, "max pages must be >= 1")
	check(c.MaxRecords >= 0, "max records must be >= 0")
	check(c.PageSize >= 1, "page size must be >= 1")
	check(c.Engine == EngineChrome || c.Engine == EngineHTTP, "engine must be %q or %q", EngineChrome, EngineHTTP)
	check(c.Timeout > 0, "timeout must be > 0")
	check(c.ChallengeAttempts >= 1, "challenge attempts must be >= 1")
	check(c.ChallengeBackoff >= 0, "challenge backoff must be >= 0")
	check(c.NavInterval >= 0, "navigation interval must be >= 0")
	checkRange(&errs, "settle", c.SettleMin, c.SettleMax)
	checkRange(&errs, "record delay", c.RecordMin, c.RecordMax)
	checkRange(&errs, "page delay", c.PageMin, c.PageMax)
	check(c.ScrollPause >= 0, "scroll pause must be >= 0")
	switch c.DescriptionFormat {
	case "text", "markdown":
	default:
		errs = append(errs, fmt.Errorf("description format %q must be text or markdown", c.DescriptionFormat))
	}
	check(c.DeadlineDays >= 0, "deadline days must be >= 0")
	check(c.Source != "", "source must not be empty")
	check(c.OutputBase != "", "output name must not be empty")
	check(c.SeenTTL > 0, "seen TTL must be > 0")
	return errors.Join(errs...)
}

func checkRange(errs *[]error, name string, min, max time.Duration) {
	if min < 0 || max < min {
		*errs = append(*errs, fmt.Errorf("%s range %s..%s is invalid", name, min, max))
	}
}
