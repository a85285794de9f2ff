// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/jobcrawl/internal/auth"
	"github.com/law-makers/jobcrawl/internal/cache"
	"github.com/law-makers/jobcrawl/internal/config"
	"github.com/law-makers/jobcrawl/internal/engine/challenge"
	"github.com/law-makers/jobcrawl/internal/engine/selector"
	"github.com/law-makers/jobcrawl/internal/metrics"
	"github.com/law-makers/jobcrawl/internal/proxy"
	"github.com/law-makers/jobcrawl/internal/ratelimit"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once per CLI invocation and shared by the command that runs.
// The watch command reuses one Application across scheduled runs, so nothing
// here is specific to a single run.
type Application struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Sessions *auth.Store
	Proxies  *proxy.ProxyPool
	Limiter  ratelimit.Limiter
	Cascade  *selector.Cascade
	Operator challenge.Operator

	// PageCache serves back navigation for the http engine.
	PageCache *cache.MemoryCache

	// In and Out are the operator's terminal.
	In  io.Reader
	Out io.Writer

	startTime time.Time
}

// SetupLogging configures the global logger from cfg and returns it.
// Components receive derived loggers; only the CLI logs through the global.
func SetupLogging(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.ErrorLevel
	}
	if cfg.Quiet && level < zerolog.ErrorLevel {
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	if cfg.JSONLog {
		w = os.Stderr
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return log.Logger
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Loads the selector tables, applying the overrides file if one is set
//   - Creates the metrics registry, session store, proxy pool and limiter
//   - Starts the page cache used by the http engine
//   - Creates the console operator when prompting is enabled
//
// Browsers and databases are opened per run, not here.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := SetupLogging(cfg)
	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	table := selector.DefaultTable()
	if cfg.SelectorsFile != "" {
		t, err := selector.LoadTables(cfg.SelectorsFile, table)
		if err != nil {
			return nil, fmt.Errorf("failed to load selectors: %w", err)
		}
		table = t
		logger.Debug().Str("file", cfg.SelectorsFile).Msg("Selector overrides loaded")
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.NavInterval > 0 {
		limiter = ratelimit.NewHostLimiter(cfg.NavInterval, 1)
	}

	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		Sessions:  auth.NewStore(),
		Proxies:   proxy.NewProxyPool(cfg.Proxies),
		Limiter:   limiter,
		Cascade:   selector.New(table, selector.WithLogger(logger)),
		PageCache: cache.NewMemoryCache(cache.DefaultMaxBytes, cache.WithLogger(logger)),
		In:        os.Stdin,
		Out:       os.Stderr,
		startTime: time.Now(),
	}
	if cfg.OperatorPrompt {
		a.Operator = challenge.NewConsoleOperator(a.In, a.Out)
	}

	logger.Debug().
		Str("engine", cfg.Engine).
		Int("proxies", a.Proxies.Len()).
		Dur("nav_interval", cfg.NavInterval).
		Msg("Application initialized")
	return a, nil
}

// Close releases application resources. Per-run resources are closed by the
// run that opened them.
func (a *Application) Close(ctx context.Context) error {
	if a.PageCache != nil {
		stats := a.PageCache.Stats()
		a.PageCache.Close()
		a.Logger.Debug().
			Uint64("hits", stats.Hits).
			Uint64("misses", stats.Misses).
			Msg("Page cache closed")
	}
	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
