package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/law-makers/jobcrawl/internal/diagnostics"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/engine/challenge"
	"github.com/law-makers/jobcrawl/internal/engine/extract"
	"github.com/law-makers/jobcrawl/internal/engine/pagination"
	"github.com/law-makers/jobcrawl/internal/engine/static"
	"github.com/law-makers/jobcrawl/internal/ratelimit"
	"github.com/law-makers/jobcrawl/internal/runctx"
	"github.com/law-makers/jobcrawl/internal/seen"
	"github.com/law-makers/jobcrawl/internal/sink"
)

// RunOptions tune one pipeline run.
type RunOptions struct {
	// StartURL overrides the configured start URL.
	StartURL string
	// Offline drops pacing, the rate limit, challenge reloads, the operator
	// prompt and diagnostics capture. Replays use it.
	Offline bool
	// Seen replaces the configured seen-store.
	Seen seen.Store
	// Observers are told about progress in addition to the metrics.
	Observers []pagination.Observer
}

// Pipeline is a driver plus the per-run resources it writes to.
type Pipeline struct {
	Driver  *pagination.Driver
	Run     *runctx.Run
	closers []io.Closer
}

// Close flushes and closes the sinks and the seen-store.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRun starts a run with its own ID and the application logger.
func (a *Application) NewRun(opts ...runctx.Option) *runctx.Run {
	return runctx.New(append([]runctx.Option{runctx.WithLogger(a.Logger)}, opts...)...)
}

// NewGate builds the challenge gate from the configuration. Gate transitions
// are counted in the metrics. Offline gates never reload and never prompt.
func (a *Application) NewGate(run *runctx.Run, offline bool) *challenge.Gate {
	cfg := a.Config
	gateCfg := challenge.DefaultConfig()
	gateCfg.MaxAttempts = cfg.ChallengeAttempts
	if cfg.ChallengeBackoff > 0 {
		gateCfg.Backoff.InitialBackoff = cfg.ChallengeBackoff
	}
	opts := []challenge.Option{
		challenge.WithLogger(run.Logger.With().Str("component", "gate").Logger()),
		challenge.WithObserver(func(from, to challenge.State) {
			a.Metrics.IncGateTransition(string(from), string(to))
		}),
	}
	if offline {
		gateCfg.MaxAttempts = 0
	} else if a.Operator != nil {
		opts = append(opts, challenge.WithOperator(a.Operator))
	}
	return challenge.New(gateCfg, run, opts...)
}

// NewPipeline wires the gate, extractor, sinks, seen-store, diagnostics and
// metrics around s. The caller closes the Pipeline; s stays open.
func (a *Application) NewPipeline(ctx context.Context, s engine.Session, run *runctx.Run, opts RunOptions) (_ *Pipeline, err error) {
	cfg := a.Config
	p := &Pipeline{Run: run}
	defer func() {
		if err != nil {
			_ = p.Close()
		}
	}()

	gate := a.NewGate(run, opts.Offline)

	format, err := extract.ParseFormat(cfg.DescriptionFormat)
	if err != nil {
		return nil, err
	}
	exOpts := extract.DefaultOptions()
	exOpts.Source = cfg.Source
	exOpts.RegionTag = cfg.RegionTag
	exOpts.DeadlineDays = cfg.DeadlineDays
	exOpts.DescriptionFormat = format
	if cfg.Timeout > 0 && cfg.Timeout < exOpts.DetailTimeout {
		exOpts.DetailTimeout = cfg.Timeout
	}
	extractor := extract.New(a.Cascade, exOpts,
		extract.WithClock(run.Clock),
		extract.WithLogger(run.Logger.With().Str("component", "extract").Logger()),
	)

	out, err := a.openSinks(ctx, run)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, out)

	store := opts.Seen
	if store == nil && cfg.RedisAddr != "" {
		r := seen.NewRedis(cfg.RedisAddr, cfg.SeenTTL)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("seen-store unreachable at %s: %w", cfg.RedisAddr, err)
		}
		p.closers = append(p.closers, r)
		store = r
	}

	observers := pagination.Observers{a.Metrics}
	observers = append(observers, opts.Observers...)

	driverOpts := []pagination.Option{
		pagination.WithSink(out),
		pagination.WithObserver(observers),
	}
	if store != nil {
		driverOpts = append(driverOpts, pagination.WithSeenStore(store))
	}
	if opts.Offline {
		driverOpts = append(driverOpts,
			pagination.WithDelays(pagination.Delays{}),
			pagination.WithLimiter(ratelimit.Unlimited{}),
		)
	} else {
		driverOpts = append(driverOpts,
			pagination.WithDelays(a.delays()),
			pagination.WithLimiter(a.Limiter),
			pagination.WithCapturer(diagnostics.NewCapturer(cfg.DebugDir, a.Cascade, run.Logger)),
		)
	}

	p.Driver = pagination.New(s, gate, a.Cascade, extractor, run, driverOpts...)
	return p, nil
}

func (a *Application) delays() pagination.Delays {
	cfg := a.Config
	return pagination.Delays{
		SettleMin:   cfg.SettleMin,
		SettleMax:   cfg.SettleMax,
		ScrollPause: cfg.ScrollPause,
		RecordMin:   cfg.RecordMin,
		RecordMax:   cfg.RecordMax,
		PageMin:     cfg.PageMin,
		PageMax:     cfg.PageMax,
	}
}

// openSinks opens the file outputs plus the optional databases.
func (a *Application) openSinks(ctx context.Context, run *runctx.Run) (sink.Multi, error) {
	cfg := a.Config
	formats, err := sink.ParseFormats(cfg.Formats)
	if err != nil {
		return nil, err
	}
	out, err := sink.OpenFiles(cfg.OutputDir, cfg.OutputBase, formats)
	if err != nil {
		return nil, fmt.Errorf("failed to open output files: %w", err)
	}
	if cfg.SQLitePath != "" {
		db, err := sink.OpenSQLite(ctx, cfg.SQLitePath, run.ID)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("failed to open sqlite sink: %w", err)
		}
		out = append(out, db)
	}
	if cfg.PostgresDSN != "" {
		db, err := sink.OpenPostgres(ctx, cfg.PostgresDSN, run.ID)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("failed to open postgres sink: %w", err)
		}
		out = append(out, db)
	}
	return out, nil
}

// Execute runs the pipeline over an open session and records the run in the
// metrics.
func (a *Application) Execute(ctx context.Context, s engine.Session, run *runctx.Run, opts RunOptions) (pagination.Result, error) {
	cfg := a.Config
	p, err := a.NewPipeline(ctx, s, run, opts)
	if err != nil {
		return pagination.Result{}, err
	}

	start := opts.StartURL
	if start == "" {
		start = cfg.StartURL
	}
	res, runErr := p.Driver.Run(ctx, pagination.Options{
		StartURL:   start,
		MaxPages:   cfg.MaxPages,
		MaxRecords: cfg.MaxRecords,
		Enrich:     cfg.Enrich,
		PageSize:   cfg.PageSize,
	})
	if err := p.Close(); err != nil {
		run.Logger.Error().Err(err).Msg("Failed to close outputs")
		if runErr == nil {
			runErr = engine.NewEngineError(engine.ErrCodePersistence, "failed to close outputs", err)
		}
	}
	a.finishMetrics(run, res)
	return res, runErr
}

func (a *Application) finishMetrics(run *runctx.Run, res pagination.Result) {
	a.Metrics.Finish(string(res.StopReason), float64(run.Now().Unix()), run.Elapsed().Seconds())
	if a.Config.MetricsFile == "" {
		return
	}
	if err := a.Metrics.WriteToTextfile(a.Config.MetricsFile); err != nil {
		run.Logger.Warn().Err(err).Str("path", a.Config.MetricsFile).Msg("Failed to write metrics")
	}
}

// Scrape opens a live session and runs the pipeline once.
func (a *Application) Scrape(ctx context.Context, observers ...pagination.Observer) (pagination.Result, error) {
	run := a.NewRun()
	if a.Proxies.Len() > 0 {
		run.Logger.Debug().
			Int("proxies", a.Proxies.Len()).
			Int("healthy", a.Proxies.Healthy()).
			Msg("Proxy pool")
	}
	s, proxyURL, err := a.OpenSession(ctx, run.Logger)
	if err != nil {
		a.Metrics.IncErrors("session")
		a.finishMetrics(run, pagination.Result{StopReason: pagination.StopSessionFailure})
		return pagination.Result{StopReason: pagination.StopSessionFailure}, err
	}
	defer func() {
		if err := s.Close(); err != nil {
			run.Logger.Debug().Err(err).Msg("Session close failed")
		}
	}()

	res, err := a.Execute(ctx, s, run, RunOptions{Observers: observers})
	if proxyURL != "" {
		if res.StopReason == pagination.StopBlocked || res.StopReason == pagination.StopSessionFailure {
			a.Proxies.MarkFailed(proxyURL)
		} else {
			a.Proxies.MarkHealthy(proxyURL)
		}
	}
	return res, err
}

// Replay re-runs extraction over pages captured in dir. Each captured page
// is processed as a one-page run through a single set of outputs; records
// are deduplicated across pages. Pages that fail are logged and skipped.
func (a *Application) Replay(ctx context.Context, dir string, observers ...pagination.Observer) (pagination.Result, error) {
	archive, err := static.LoadDir(dir)
	if err != nil {
		return pagination.Result{}, err
	}
	urls := archive.URLs()
	if len(urls) == 0 {
		return pagination.Result{}, fmt.Errorf("no captured pages in %s", dir)
	}

	run := a.NewRun()
	s := static.New(archive, static.WithLogger(run.Logger))
	defer s.Close()

	p, err := a.NewPipeline(ctx, s, run, RunOptions{
		Offline:   true,
		Seen:      seen.NewMemory(),
		Observers: observers,
	})
	if err != nil {
		return pagination.Result{}, err
	}

	var total pagination.Result
	for _, u := range urls {
		res, err := p.Driver.Run(ctx, pagination.Options{
			StartURL: u,
			MaxPages: 1,
			Enrich:   a.Config.Enrich,
			PageSize: a.Config.PageSize,
		})
		total.Records = append(total.Records, res.Records...)
		total.Pages += res.Pages
		total.Duplicates += res.Duplicates
		total.Enriched += res.Enriched
		total.EnrichFailures += res.EnrichFailures
		total.StopReason = res.StopReason
		total.LastURL = res.LastURL
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			run.Logger.Warn().Err(err).Str("url", u).Msg("Captured page skipped")
		}
	}

	closeErr := p.Close()
	a.finishMetrics(run, total)
	run.Logger.Info().
		Int("pages", total.Pages).
		Int("records", len(total.Records)).
		Dur("elapsed", run.Elapsed()).
		Msg("Replay finished")
	if err := ctx.Err(); err != nil {
		return total, err
	}
	if closeErr != nil {
		return total, engine.NewEngineError(engine.ErrCodePersistence, "failed to close outputs", closeErr)
	}
	return total, nil
}
