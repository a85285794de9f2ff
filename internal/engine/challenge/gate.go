// Package challenge tells genuine result pages apart from anti-automation
// interstitials and drives the reload, backoff and operator escalation path.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/retry"
	"github.com/law-makers/jobcrawl/internal/runctx"
)

// State is a gate state.
type State string

const (
	StateUnknown            State = "unknown"
	StateChallenge          State = "challenge"
	StateGenuine            State = "genuine"
	StateManualIntervention State = "manual_intervention"
	StateBlocked            State = "blocked"
)

// DefaultPrefixLen bounds how much rendered text is inspected.
const DefaultPrefixLen = 500

// Config holds the gate tables and retry budget.
type Config struct {
	ChallengePhrases []string
	GenuineMarkers   []string
	BlockPatterns    []string
	PrefixLen        int
	MaxAttempts      int
	Backoff          retry.Config
}

// DefaultConfig returns the built-in phrase tables and a five-reload budget.
func DefaultConfig() Config {
	return Config{
		ChallengePhrases: []string{
			"verify you are human",
			"checking your browser",
			"cf-browser-verification",
			"recaptcha",
			"just a moment",
			"verifica que eres humano",
			"verificación de seguridad",
			"comprobando tu navegador",
			"confirma que eres humano",
		},
		GenuineMarkers: []string{
			"empleos en costa rica",
			"jobs in costa rica",
		},
		BlockPatterns: []string{
			"google.com/sorry",
			"captcha",
		},
		PrefixLen:   DefaultPrefixLen,
		MaxAttempts: 5,
		Backoff: retry.Config{
			InitialBackoff: 3 * time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     1.6,
			Jitter:         0.4,
		},
	}
}

// Verdict is the outcome of one Check.
type Verdict struct {
	State    State
	Reloads  int
	URL      string
	Operator bool
}

// Gate classifies pages and escalates persistent challenges.
type Gate struct {
	cfg      Config
	run      *runctx.Run
	operator Operator
	logger   zerolog.Logger
	observe  func(from, to State)
}

// Option configures a Gate.
type Option func(*Gate)

// WithOperator sets who is asked to clear a challenge by hand once the reload
// budget is spent.
func WithOperator(op Operator) Option {
	return func(g *Gate) { g.operator = op }
}

// WithLogger sets the gate logger.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithObserver registers a callback for every state transition.
func WithObserver(fn func(from, to State)) Option {
	return func(g *Gate) { g.observe = fn }
}

// New creates a Gate. Zero-valued config fields take their defaults.
func New(cfg Config, run *runctx.Run, opts ...Option) *Gate {
	def := DefaultConfig()
	if len(cfg.ChallengePhrases) == 0 {
		cfg.ChallengePhrases = def.ChallengePhrases
	}
	if len(cfg.GenuineMarkers) == 0 {
		cfg.GenuineMarkers = def.GenuineMarkers
	}
	if len(cfg.BlockPatterns) == 0 {
		cfg.BlockPatterns = def.BlockPatterns
	}
	if cfg.PrefixLen <= 0 {
		cfg.PrefixLen = def.PrefixLen
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if cfg.Backoff.Multiplier == 0 {
		cfg.Backoff = def.Backoff
	}
	if run == nil {
		run = runctx.New()
	}
	cfg.Backoff.Rand = run.Float64

	g := &Gate{cfg: cfg, run: run, logger: run.Logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Classify inspects the bounded prefix of rendered text. Challenge phrases
// take precedence over genuine markers; text with neither is unknown.
func (g *Gate) Classify(text string) State {
	prefix := boundedPrefix(text, g.cfg.PrefixLen)
	for _, p := range g.cfg.ChallengePhrases {
		if strings.Contains(prefix, p) {
			return StateChallenge
		}
	}
	for _, m := range g.cfg.GenuineMarkers {
		if strings.Contains(prefix, m) {
			return StateGenuine
		}
	}
	return StateUnknown
}

// Blocked reports whether url is a hard-block destination.
func (g *Gate) Blocked(url string) bool {
	u := strings.ToLower(url)
	for _, p := range g.cfg.BlockPatterns {
		if strings.Contains(u, p) {
			return true
		}
	}
	return false
}

func boundedPrefix(text string, n int) string {
	r := []rune(text)
	if len(r) > n {
		r = r[:n]
	}
	return strings.ToLower(string(r))
}

func (g *Gate) transition(from, to State, url string, reloads int) {
	g.logger.Debug().
		Str("from", string(from)).
		Str("state", string(to)).
		Str("url", url).
		Int("attempt", reloads).
		Msg("gate transition")
	if g.observe != nil {
		g.observe(from, to)
	}
}

func (g *Gate) inspect(ctx context.Context, s engine.Session) (State, string, error) {
	url, err := s.CurrentURL(ctx)
	if err != nil {
		return StateUnknown, "", fmt.Errorf("failed to read current URL: %w", err)
	}
	if g.Blocked(url) {
		return StateBlocked, url, nil
	}
	text, err := s.RenderedText(ctx)
	if err != nil {
		return StateUnknown, url, fmt.Errorf("failed to read page text: %w", err)
	}
	return g.Classify(text), url, nil
}

// Check decides whether the page loaded in s is genuine. A challenge is
// reloaded with randomized exponential backoff up to MaxAttempts times, then
// handed to the operator. A page showing neither challenge nor genuine
// markers is accepted; listing discovery has the final say on it.
//
// Errors: ErrHardBlock when the session landed on a block page,
// ErrChallengeUnresolved when the challenge outlasts every remedy, and the
// context error on cancellation.
func (g *Gate) Check(ctx context.Context, s engine.Session) (Verdict, error) {
	v := Verdict{State: StateUnknown}

	state, url, err := g.inspect(ctx, s)
	v.URL = url
	if err != nil {
		return v, err
	}

	for {
		switch state {
		case StateBlocked:
			g.transition(v.State, StateBlocked, url, v.Reloads)
			v.State = StateBlocked
			return v, engine.NewEngineError(engine.ErrCodeHardBlock, "redirected to "+url, engine.ErrHardBlock).
				WithDetail("url", url)
		case StateGenuine, StateUnknown:
			g.transition(v.State, StateGenuine, url, v.Reloads)
			v.State = StateGenuine
			return v, nil
		}

		g.transition(v.State, StateChallenge, url, v.Reloads)
		v.State = StateChallenge
		if v.Reloads >= g.cfg.MaxAttempts {
			break
		}

		wait := retry.Backoff(v.Reloads, g.cfg.Backoff)
		g.logger.Info().Int("attempt", v.Reloads+1).Int("max_attempts", g.cfg.MaxAttempts).Dur("backoff", wait).Msg("Challenge detected, reloading")
		if err := g.run.Clock.Sleep(ctx, wait); err != nil {
			return v, err
		}
		if err := s.Reload(ctx); err != nil {
			if ctx.Err() != nil {
				return v, ctx.Err()
			}
			g.logger.Warn().Err(err).Msg("reload failed")
		}
		v.Reloads++

		state, url, err = g.inspect(ctx, s)
		v.URL = url
		if err != nil {
			return v, err
		}
	}

	return g.escalate(ctx, s, v)
}

func (g *Gate) escalate(ctx context.Context, s engine.Session, v Verdict) (Verdict, error) {
	g.transition(v.State, StateManualIntervention, v.URL, v.Reloads)
	v.State = StateManualIntervention

	unresolved := func(reason string, cause error) error {
		err := engine.NewEngineError(engine.ErrCodeChallengeUnresolved, reason, engine.ErrChallengeUnresolved).
			WithDetail("url", v.URL).
			WithDetail("reloads", v.Reloads)
		if cause != nil {
			return fmt.Errorf("%w: %v", err, cause)
		}
		return err
	}

	if g.operator == nil {
		return v, unresolved("challenge persisted and no operator is configured", nil)
	}

	v.Operator = true
	g.logger.Warn().Str("url", v.URL).Msg("Challenge persisted, waiting for operator")
	resume, err := g.operator.Resolve(ctx, v.URL)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return v, err
		}
		return v, unresolved("operator prompt failed", err)
	}
	if !resume {
		return v, unresolved("operator declined", nil)
	}

	state, url, err := g.inspect(ctx, s)
	v.URL = url
	if err != nil {
		return v, err
	}
	switch state {
	case StateBlocked:
		v.State = StateBlocked
		return v, engine.NewEngineError(engine.ErrCodeHardBlock, "redirected to "+url, engine.ErrHardBlock)
	case StateChallenge:
		return v, unresolved("challenge still present after operator resumed", nil)
	}
	g.transition(StateManualIntervention, StateGenuine, url, v.Reloads)
	v.State = StateGenuine
	return v, nil
}
