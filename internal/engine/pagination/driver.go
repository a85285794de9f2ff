// Package pagination walks the result pages of a search, one page and one
// record at a time, persisting every record as soon as it is complete.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/law-makers/jobcrawl/internal/diagnostics"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/engine/challenge"
	"github.com/law-makers/jobcrawl/internal/engine/extract"
	"github.com/law-makers/jobcrawl/internal/engine/selector"
	"github.com/law-makers/jobcrawl/internal/ratelimit"
	"github.com/law-makers/jobcrawl/internal/runctx"
	"github.com/law-makers/jobcrawl/internal/seen"
	"github.com/law-makers/jobcrawl/internal/sink"
	urlutil "github.com/law-makers/jobcrawl/internal/utils/url"
	"github.com/law-makers/jobcrawl/pkg/models"
)

// DefaultPageSize is the result offset step between pages.
const DefaultPageSize = 10

// scrollScript scrolls halfway down to trigger lazy-loaded cards.
const scrollScript = `window.scrollTo(0, document.body.scrollHeight / 2)`

// StopReason says why a run ended.
type StopReason string

const (
	StopMaxPages       StopReason = "max_pages"
	StopMaxRecords     StopReason = "max_records"
	StopNoListings     StopReason = "no_listings"
	StopPageError      StopReason = "page_error"
	StopBlocked        StopReason = "blocked"
	StopSessionFailure StopReason = "session_failure"
	StopCancelled      StopReason = "cancelled"
)

// Options are the parameters of one run.
type Options struct {
	StartURL   string
	MaxPages   int
	MaxRecords int // 0 means no limit
	Enrich     bool
	PageSize   int
}

// Delays are the randomized pauses between actions.
type Delays struct {
	SettleMin   time.Duration
	SettleMax   time.Duration
	ScrollPause time.Duration
	RecordMin   time.Duration
	RecordMax   time.Duration
	PageMin     time.Duration
	PageMax     time.Duration
}

// DefaultDelays returns the pacing used against the live site.
func DefaultDelays() Delays {
	return Delays{
		SettleMin:   3 * time.Second,
		SettleMax:   5 * time.Second,
		ScrollPause: 2 * time.Second,
		RecordMin:   500 * time.Millisecond,
		RecordMax:   1500 * time.Millisecond,
		PageMin:     4 * time.Second,
		PageMax:     7 * time.Second,
	}
}

// Result is what a run produced. Records are returned even when the run
// ended early.
type Result struct {
	Records        []*models.JobRecord
	Pages          int
	StopReason     StopReason
	Duplicates     int
	Enriched       int
	EnrichFailures int
	LastURL        string
}

// Driver owns the session for the duration of a run.
type Driver struct {
	session   engine.Session
	gate      *challenge.Gate
	cascade   *selector.Cascade
	extractor *extract.Extractor
	run       *runctx.Run

	sink     sink.Sink
	limiter  ratelimit.Limiter
	seen     seen.Store
	capturer *diagnostics.Capturer
	observer Observer
	delays   Delays
	logger   zerolog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithSink sets where records are persisted.
func WithSink(s sink.Sink) Option {
	return func(d *Driver) { d.sink = s }
}

// WithLimiter paces navigations.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(d *Driver) { d.limiter = l }
}

// WithSeenStore skips ids produced by earlier runs.
func WithSeenStore(s seen.Store) Option {
	return func(d *Driver) { d.seen = s }
}

// WithCapturer enables diagnostics capture on unusable pages.
func WithCapturer(c *diagnostics.Capturer) Option {
	return func(d *Driver) { d.capturer = c }
}

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observer = o }
}

// WithDelays overrides the pacing.
func WithDelays(dl Delays) Option {
	return func(d *Driver) { d.delays = dl }
}

// New creates a Driver. The run supplies the clock, randomness and logger.
func New(s engine.Session, gate *challenge.Gate, cascade *selector.Cascade, extractor *extract.Extractor, run *runctx.Run, opts ...Option) *Driver {
	if run == nil {
		run = runctx.New()
	}
	d := &Driver{
		session:   s,
		gate:      gate,
		cascade:   cascade,
		extractor: extractor,
		run:       run,
		sink:      sink.Discard{},
		limiter:   ratelimit.Unlimited{},
		observer:  NopObserver{},
		delays:    DefaultDelays(),
		logger:    run.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// pageEnd carries why a page ended the run.
type pageEnd struct {
	reason StopReason
	err    error
}

func (d *Driver) end(reason StopReason, err error) *pageEnd {
	return &pageEnd{reason: reason, err: err}
}

// Run walks pages 0..MaxPages-1 starting at StartURL. It stops early on
// MaxRecords, an empty page, a page error, a block, a session failure or
// cancellation, and always returns the records gathered so far.
//
// An empty page ends the run without error. Page errors and blocks return
// an error matching ErrPageLoad or ErrHardBlock. Session failures return an
// error for which engine.IsSessionFailure holds. Cancellation returns the
// context error.
func (d *Driver) Run(ctx context.Context, opts Options) (Result, error) {
	res := Result{Records: []*models.JobRecord{}}
	if strings.TrimSpace(opts.StartURL) == "" {
		return res, engine.NewEngineError(engine.ErrCodeValidation, "start URL is required", nil)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}

	d.logger.Info().
		Str("url", opts.StartURL).
		Bool("enrich", opts.Enrich).
		Int("max_pages", opts.MaxPages).
		Int("max_records", opts.MaxRecords).
		Msg("Run started")

	ids := make(map[string]struct{})
	for page := 0; page < opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return d.finish(&res, StopCancelled, err)
		}
		if stop := d.page(ctx, &res, opts, page, ids); stop != nil {
			return d.finish(&res, stop.reason, stop.err)
		}
		if page < opts.MaxPages-1 {
			if err := d.run.Pause(ctx, d.delays.PageMin, d.delays.PageMax); err != nil {
				return d.finish(&res, StopCancelled, err)
			}
		}
	}
	return d.finish(&res, StopMaxPages, nil)
}

func (d *Driver) finish(res *Result, reason StopReason, err error) (Result, error) {
	res.StopReason = reason
	level := zerolog.InfoLevel
	if err != nil && reason != StopCancelled {
		level = zerolog.WarnLevel
	}
	d.logger.WithLevel(level).
		Err(err).
		Str("stop_reason", string(reason)).
		Int("records", len(res.Records)).
		Int("pages", res.Pages).
		Int("duplicates", res.Duplicates).
		Dur("elapsed", d.run.Elapsed()).
		Msg("Run finished")
	return *res, err
}

func (d *Driver) page(ctx context.Context, res *Result, opts Options, page int, ids map[string]struct{}) *pageEnd {
	pageURL := urlutil.PageURL(opts.StartURL, page, opts.PageSize)
	log := d.logger.With().Int("page", page).Str("url", pageURL).Logger()

	if err := d.limiter.Wait(ctx, pageURL); err != nil {
		if ctx.Err() != nil {
			return d.end(StopCancelled, ctx.Err())
		}
		return d.end(StopPageError, pageError(page, pageURL, err))
	}

	log.Info().Msg("Loading results page")
	if err := d.session.Navigate(ctx, pageURL); err != nil {
		return d.navigationFailed(ctx, page, pageURL, err)
	}
	res.Pages++
	res.LastURL = pageURL

	if err := d.run.Pause(ctx, d.delays.SettleMin, d.delays.SettleMax); err != nil {
		return d.end(StopCancelled, err)
	}
	if err := d.session.Evaluate(ctx, scrollScript, nil); err != nil {
		if ctx.Err() != nil {
			return d.end(StopCancelled, ctx.Err())
		}
		log.Debug().Err(err).Msg("scroll failed")
	}
	if err := d.run.Clock.Sleep(ctx, d.delays.ScrollPause); err != nil {
		return d.end(StopCancelled, err)
	}

	verdict, err := d.gate.Check(ctx, d.session)
	if verdict.URL != "" {
		res.LastURL = verdict.URL
	}
	if err != nil {
		return d.gateFailed(ctx, page, verdict, err)
	}

	doc, err := d.document(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return d.end(StopCancelled, ctx.Err())
		}
		d.observer.PageDone(page, OutcomeError, 0)
		return d.end(StopPageError, pageError(page, pageURL, err))
	}

	found, ok := d.cascade.DiscoverListings(doc)
	if !ok {
		log.Warn().Msg("No listings found, stopping")
		d.capture(ctx, page, string(verdict.State), string(StopNoListings))
		d.observer.PageDone(page, OutcomeNoListings, 0)
		return d.end(StopNoListings, nil)
	}
	log.Info().Int("listings", found.Count()).Str("selector", found.Selector).Msg("Listings found")

	returnURL := res.LastURL
	var cards []*goquery.Selection
	found.Each(func(_ int, card *goquery.Selection) { cards = append(cards, card) })

	for i, card := range cards {
		if err := ctx.Err(); err != nil {
			return d.end(StopCancelled, err)
		}
		if i > 0 {
			if err := d.run.Pause(ctx, d.delays.RecordMin, d.delays.RecordMax); err != nil {
				return d.end(StopCancelled, err)
			}
		}

		saved, stop := d.record(ctx, res, opts, page, card, returnURL, ids)
		if stop != nil {
			return stop
		}
		if saved && opts.MaxRecords > 0 && len(res.Records) >= opts.MaxRecords {
			d.observer.PageDone(page, OutcomeOK, len(cards))
			log.Info().Int("records", len(res.Records)).Msg("Record limit reached")
			return d.end(StopMaxRecords, nil)
		}
	}

	d.observer.PageDone(page, OutcomeOK, len(cards))
	return nil
}

// record extracts, deduplicates, enriches and persists one card. It reports
// whether a record was saved.
func (d *Driver) record(ctx context.Context, res *Result, opts Options, page int, card *goquery.Selection, returnURL string, ids map[string]struct{}) (bool, *pageEnd) {
	rec, ok := d.extractor.FromListing(card)
	if !ok {
		d.logger.Debug().Int("page", page).Msg("listing without title skipped")
		return false, nil
	}

	key := rec.Key()
	if key != "" {
		if _, dup := ids[key]; dup {
			res.Duplicates++
			d.observer.Duplicate("run")
			return false, nil
		}
		ids[key] = struct{}{}

		if d.seen != nil {
			already, err := d.seen.Seen(ctx, key)
			switch {
			case err != nil && ctx.Err() != nil:
				return false, d.end(StopCancelled, ctx.Err())
			case err != nil:
				d.logger.Warn().Err(err).Str("job", key).Msg("Seen-store lookup failed")
				d.observer.Error("seen_store", err)
			case already:
				res.Duplicates++
				d.observer.Duplicate("seen_store")
				return false, nil
			}
		}
	}

	var cancelled error
	enriched := false
	if opts.Enrich {
		out, err := d.extractor.Enrich(ctx, d.session, rec, returnURL)
		switch {
		case err == nil:
			rec = out
			enriched = true
			res.Enriched++
		case ctx.Err() != nil:
			cancelled = ctx.Err()
		default:
			res.EnrichFailures++
			d.logger.Warn().Err(err).Int("page", page).Str("title", rec.Title).Msg("Enrichment failed, keeping listing data")
			d.observer.EnrichFailed(rec, err)
		}
	}

	d.extractor.Finalize(rec, page)

	// Persist even when the run is being cancelled so the listing data is kept.
	persistCtx := context.WithoutCancel(ctx)
	if err := d.sink.Write(persistCtx, rec); err != nil {
		d.logger.Error().Err(err).Str("title", rec.Title).Msg("Failed to persist record")
		d.observer.Error("sink", engine.NewEngineError(engine.ErrCodePersistence, "failed to persist record", err))
	} else if d.seen != nil && key != "" {
		if err := d.seen.Mark(persistCtx, key); err != nil {
			d.logger.Warn().Err(err).Str("job", key).Msg("Seen-store mark failed")
			d.observer.Error("seen_store", err)
		}
	}
	res.Records = append(res.Records, rec)
	d.observer.RecordSaved(rec, enriched)

	if cancelled != nil {
		return true, d.end(StopCancelled, cancelled)
	}
	return true, nil
}

func (d *Driver) document(ctx context.Context) (*goquery.Document, error) {
	raw, err := d.session.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(raw))
}

func (d *Driver) navigationFailed(ctx context.Context, page int, pageURL string, err error) *pageEnd {
	if ctx.Err() != nil {
		return d.end(StopCancelled, ctx.Err())
	}
	d.observer.PageDone(page, OutcomeError, 0)
	if engine.IsSessionFailure(err) {
		return d.end(StopSessionFailure, err)
	}
	return d.end(StopPageError, pageError(page, pageURL, err))
}

func (d *Driver) gateFailed(ctx context.Context, page int, v challenge.Verdict, err error) *pageEnd {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return d.end(StopCancelled, err)
	case errors.Is(err, engine.ErrHardBlock):
		d.capture(ctx, page, string(v.State), string(StopBlocked))
		d.observer.PageDone(page, OutcomeBlocked, 0)
		return d.end(StopBlocked, err)
	case engine.IsSessionFailure(err):
		d.capture(ctx, page, string(v.State), string(StopSessionFailure))
		d.observer.PageDone(page, OutcomeBlocked, 0)
		return d.end(StopSessionFailure, err)
	}
	d.observer.PageDone(page, OutcomeError, 0)
	return d.end(StopPageError, pageError(page, v.URL, err))
}

func (d *Driver) capture(ctx context.Context, page int, state, reason string) {
	if d.capturer == nil {
		return
	}
	_, err := d.capturer.Capture(ctx, d.session, page, diagnostics.Meta{
		State:      state,
		Reason:     reason,
		RunID:      d.run.ID,
		CapturedAt: d.run.Now().UTC(),
	})
	if err != nil {
		d.logger.Warn().Err(err).Int("page", page).Msg("Diagnostics capture failed")
	}
}

func pageError(page int, pageURL string, err error) error {
	if errors.Is(err, engine.ErrPageLoad) {
		return fmt.Errorf("page %d: %w", page, err)
	}
	return engine.NewEngineError(engine.ErrCodePageLoad, fmt.Sprintf("page %d failed", page), fmt.Errorf("%w: %v", engine.ErrPageLoad, err)).
		WithDetail("url", pageURL)
}
