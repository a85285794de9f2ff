package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// CaptureOptions configures an operator session capture.
type CaptureOptions struct {
	// Name is the name to save the session as
	Name string
	// URL the operator starts from, normally the search results page
	URL string
	// ExecPath is the Chrome binary; empty lets chromedp search
	ExecPath string
	// WaitSelector, when set, ends the capture once it is visible instead of
	// waiting for the operator to press Enter
	WaitSelector string
	// Timeout for the entire capture
	Timeout time.Duration
	// Headers stored with the session and replayed on later runs
	Headers map[string]string
	// UserAgent overrides the browser user agent
	UserAgent string
	// RemoteDebuggingPort enables Chrome DevTools on this port (e.g., 9222)
	RemoteDebuggingPort int

	In     io.Reader
	Out    io.Writer
	Logger zerolog.Logger
}

// Capture opens a visible browser on opts.URL, lets the operator clear any
// verification by hand, then collects the cookies into a SessionData.
func Capture(ctx context.Context, opts CaptureOptions) (*SessionData, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return nil, fmt.Errorf("session capture needs a display server (DISPLAY not set); " +
			"use 'jobcrawl sessions import' to paste cookies from another browser instead")
	}

	log := opts.Logger
	log.Info().Str("session", opts.Name).Str("url", opts.URL).Msg("Starting session capture")

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("lang", "es-CR"),
		chromedp.WindowSize(1280, 900),
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.RemoteDebuggingPort > 0 {
		allocOpts = append(allocOpts,
			chromedp.Flag("remote-debugging-port", fmt.Sprintf("%d", opts.RemoteDebuggingPort)),
			chromedp.Flag("remote-debugging-address", "0.0.0.0"),
		)
		fmt.Fprintf(opts.Out, "Remote debugging enabled on port %d (open chrome://inspect locally)\n", opts.RemoteDebuggingPort)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx, network.Enable(), chromedp.Navigate(opts.URL)); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if opts.WaitSelector != "" {
		fmt.Fprintf(opts.Out, "Complete any verification in the browser. Waiting for %s ...\n", opts.WaitSelector)
		if err := chromedp.Run(browserCtx, chromedp.WaitVisible(opts.WaitSelector, chromedp.ByQuery)); err != nil {
			return nil, fmt.Errorf("capture timed out: %w", err)
		}
	} else {
		fmt.Fprintln(opts.Out, "Complete any verification in the browser, then press Enter here.")
		if err := waitForEnter(ctx, opts.In); err != nil {
			return nil, err
		}
	}

	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to extract cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies found; the page may not have loaded")
	}
	log.Info().Int("cookie_count", len(cookies)).Msg("Cookies captured")

	return sessionFromCookies(opts, cookies, time.Now()), nil
}

func waitForEnter(ctx context.Context, in io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sessionFromCookies(opts CaptureOptions, cookies []*network.Cookie, now time.Time) *SessionData {
	session := &SessionData{
		Name:      opts.Name,
		URL:       opts.URL,
		Headers:   opts.Headers,
		UserAgent: opts.UserAgent,
		CreatedAt: now,
		Cookies:   make([]Cookie, len(cookies)),
	}
	maxExpires := 0.0
	for i, c := range cookies {
		session.Cookies[i] = Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		}
		if c.Expires > maxExpires {
			maxExpires = c.Expires
		}
	}
	if maxExpires > 0 {
		session.ExpiresAt = time.Unix(int64(maxExpires), 0)
	}
	return session
}
