// Package dynamic implements engine.Session on a real Chrome driven over the
// DevTools protocol.
package dynamic

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/law-makers/jobcrawl/internal/auth"
	"github.com/law-makers/jobcrawl/internal/engine"
)

// DefaultTimeout bounds a single navigation.
const DefaultTimeout = 60 * time.Second

// hideWebdriver runs before any page script so navigator.webdriver reads as
// undefined, the way it does in a browser a person opened.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Options configures a browser session.
type Options struct {
	Headless bool
	// ExecPath is the Chrome binary. Empty means FindChrome.
	ExecPath  string
	Proxy     string
	UserAgent string
	// Headers are sent with every request. Accept-Language is added when
	// missing.
	Headers map[string]string
	// Session seeds the browser with cookies from an operator session.
	Session *auth.SessionData
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Session is a single Chrome tab.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
	logger      zerolog.Logger

	mu     sync.Mutex
	status int64
}

var _ engine.Session = (*Session)(nil)

// NewSession launches Chrome and prepares one tab: network events on,
// headers and cookies installed, automation markers hidden.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ExecPath == "" {
		opts.ExecPath = FindChrome(opts.Logger)
	}
	if opts.UserAgent == "" && opts.Session != nil {
		opts.UserAgent = opts.Session.UserAgent
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			opts.Logger.Debug().Msgf(format, args...)
		}),
	)

	s := &Session{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		timeout:     opts.Timeout,
		logger:      opts.Logger,
	}

	chromedp.ListenTarget(browserCtx, func(ev any) {
		if ev, ok := ev.(*network.EventResponseReceived); ok && ev.Type == network.ResourceTypeDocument {
			s.mu.Lock()
			s.status = ev.Response.Status
			s.mu.Unlock()
		}
	})

	setup := []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(requestHeaders(opts.Headers, opts.Session)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
			return err
		}),
	}
	for _, c := range cookieParams(opts.Session) {
		setup = append(setup, c)
	}

	start := time.Now()
	if err := chromedp.Run(browserCtx, setup...); err != nil {
		s.Close()
		if errors.Is(err, exec.ErrNotFound) || opts.ExecPath == "" {
			return nil, engine.NewEngineError(engine.ErrCodeSessionError, "chrome could not be launched",
				fmt.Errorf("%w: %v", engine.ErrBrowserNotFound, err))
		}
		return nil, engine.NewEngineError(engine.ErrCodeSessionError, "browser setup failed",
			fmt.Errorf("%w: %v", engine.ErrSessionStart, err)).
			WithDetail("exec_path", opts.ExecPath)
	}

	opts.Logger.Info().
		Str("exec_path", opts.ExecPath).
		Str("version", ChromeVersion(opts.ExecPath)).
		Bool("headless", opts.Headless).
		Bool("proxy", opts.Proxy != "").
		Int("cookies", cookieCount(opts.Session)).
		Dur("startup", time.Since(start)).
		Msg("Browser session ready")
	return s, nil
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("lang", "es-CR"),
		chromedp.WindowSize(1920, 1080),
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	return allocOpts
}

// requestHeaders merges session headers under explicit ones and makes sure
// Accept-Language is present.
func requestHeaders(extra map[string]string, session *auth.SessionData) network.Headers {
	h := network.Headers{}
	if session != nil {
		for k, v := range session.Headers {
			h[k] = v
		}
	}
	for k, v := range extra {
		h[k] = v
	}
	if _, ok := h["Accept-Language"]; !ok {
		h["Accept-Language"] = engine.AcceptLanguage
	}
	return h
}

func cookieParams(session *auth.SessionData) []*network.SetCookieParams {
	if session == nil {
		return nil
	}
	out := make([]*network.SetCookieParams, 0, len(session.Cookies))
	for _, c := range session.Cookies {
		p := network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(c.Path).
			WithSecure(c.Secure).
			WithHTTPOnly(c.HTTPOnly)
		if c.SameSite != "" {
			p = p.WithSameSite(network.CookieSameSite(c.SameSite))
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p = p.WithExpires(&exp)
		}
		out = append(out, p)
	}
	return out
}

func cookieCount(session *auth.SessionData) int {
	if session == nil {
		return 0
	}
	return len(session.Cookies)
}

// run executes actions on the tab, bounded by the caller's ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// runTimeout is run with an extra deadline.
func (s *Session) runTimeout(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := s.run(tctx, actions...)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return engine.NewEngineError(engine.ErrCodeTimeout, fmt.Sprintf("timed out after %s", timeout), err)
	}
	return err
}

func (s *Session) loadFailed(msg string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if s.ctx.Err() != nil {
		return engine.NewEngineError(engine.ErrCodeSessionError, "browser is gone",
			fmt.Errorf("%w: %v", engine.ErrSessionStart, err))
	}
	return engine.NewEngineError(engine.ErrCodePageLoad, msg, fmt.Errorf("%w: %v", engine.ErrPageLoad, err))
}

func (s *Session) Name() string { return "chromedp" }

// Status is the HTTP status of the last main document response.
func (s *Session) Status() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	start := time.Now()
	err := s.runTimeout(ctx, s.timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return s.loadFailed("failed to load "+url, err)
	}
	s.logger.Debug().
		Str("url", url).
		Int64("status", s.Status()).
		Dur("elapsed", time.Since(start)).
		Msg("Navigated")
	return nil
}

func (s *Session) Reload(ctx context.Context) error {
	err := s.runTimeout(ctx, s.timeout,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return s.loadFailed("reload failed", err)
	}
	return nil
}

func (s *Session) Back(ctx context.Context) error {
	err := s.runTimeout(ctx, s.timeout,
		chromedp.NavigateBack(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return s.loadFailed("back navigation failed", err)
	}
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (s *Session) RenderedText(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)); err != nil {
		return "", err
	}
	return text, nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var doc string
	if err := s.run(ctx, chromedp.OuterHTML("html", &doc, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return doc, nil
}

func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	return s.run(ctx, chromedp.Evaluate(script, out))
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.runTimeout(ctx, s.timeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.runTimeout(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Close shuts the tab and the browser process.
func (s *Session) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
