// Package static implements engine.Session without a browser. Documents come
// from a Loader (captured pages or plain HTTP), scripts run in goja against a
// small mock DOM, and visible text is computed from the parsed tree.
package static

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/law-makers/jobcrawl/internal/engine"
	urlutil "github.com/law-makers/jobcrawl/internal/utils/url"
)

// Session is a replay session over a Loader.
type Session struct {
	loader Loader
	logger zerolog.Logger

	url     string
	html    string
	root    *html.Node
	doc     *goquery.Document
	history []string
	scrollY float64

	navigations []string
	reloads     int
	scrolls     []float64
}

var _ engine.Session = (*Session)(nil)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New returns a session reading documents from loader.
func New(loader Loader, opts ...Option) *Session {
	s := &Session{loader: loader, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements engine.Session.
func (s *Session) Name() string { return "static" }

func (s *Session) load(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page, err := s.loader.Load(ctx, target)
	if err != nil {
		return err
	}
	root, err := html.Parse(strings.NewReader(page.HTML))
	if err != nil {
		return engine.NewEngineError(engine.ErrCodePageLoad, "failed to parse document", fmt.Errorf("%w: %v", engine.ErrPageLoad, err))
	}
	s.url = page.URL
	s.html = page.HTML
	s.root = root
	s.doc = goquery.NewDocumentFromNode(root)
	s.scrollY = 0
	s.logger.Debug().Str("url", page.URL).Int("bytes", len(page.HTML)).Msg("document loaded")
	return nil
}

// Navigate implements engine.Session.
func (s *Session) Navigate(ctx context.Context, target string) error {
	if err := s.load(ctx, target); err != nil {
		return err
	}
	s.navigations = append(s.navigations, target)
	s.history = append(s.history, s.url)
	return nil
}

// Reload implements engine.Session.
func (s *Session) Reload(ctx context.Context) error {
	if s.url == "" {
		return engine.ErrNoDocument
	}
	s.reloads++
	return s.load(Fresh(ctx), s.url)
}

// Back implements engine.Session.
func (s *Session) Back(ctx context.Context) error {
	if len(s.history) < 2 {
		return fmt.Errorf("no previous document in history")
	}
	prev := s.history[len(s.history)-2]
	if err := s.load(ctx, prev); err != nil {
		return err
	}
	s.history = s.history[:len(s.history)-1]
	return nil
}

// CurrentURL implements engine.Session.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	if s.url == "" {
		return "", engine.ErrNoDocument
	}
	return s.url, nil
}

// RenderedText implements engine.Session.
func (s *Session) RenderedText(ctx context.Context) (string, error) {
	if s.root == nil {
		return "", engine.ErrNoDocument
	}
	return visibleText(s.root), nil
}

// HTML implements engine.Session.
func (s *Session) HTML(ctx context.Context) (string, error) {
	if s.root == nil {
		return "", engine.ErrNoDocument
	}
	return s.html, nil
}

// Evaluate implements engine.Session.
func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	if s.root == nil {
		return engine.ErrNoDocument
	}
	v, err := s.runScript(ctx, script)
	if err != nil {
		return fmt.Errorf("script failed: %w", err)
	}
	return decodeResult(v, out)
}

// Screenshot implements engine.Session. Nothing is rendered, so the image is
// a blank viewport-sized placeholder.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if s.root == nil {
		return nil, engine.ErrNoDocument
	}
	img := image.NewGray(image.Rect(0, 0, viewportWidth/10, viewportHeight/10))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Click implements engine.Session. Clicking follows the href of the matched
// element or its closest link; a card carrying only data-jk opens its
// view page.
func (s *Session) Click(ctx context.Context, selector string) error {
	if s.doc == nil {
		return engine.ErrNoDocument
	}
	el := s.doc.Find(selector).First()
	if el.Length() == 0 {
		return fmt.Errorf("no element matches %q", selector)
	}

	href, ok := el.Attr("href")
	if !ok {
		href, ok = el.Closest("a[href]").Attr("href")
	}
	if !ok {
		href, ok = el.Find("a[href]").First().Attr("href")
	}
	if !ok {
		if jk, has := el.Attr("data-jk"); has && jk != "" {
			href, ok = "/viewjob?jk="+url.QueryEscape(jk), true
		}
	}
	if !ok {
		return fmt.Errorf("element %q is not navigable", selector)
	}

	return s.Navigate(ctx, urlutil.ResolveURL(s.url, href))
}

// WaitVisible implements engine.Session. A captured document never changes,
// so the element is either present now or never.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.doc == nil {
		return engine.ErrNoDocument
	}
	if s.doc.Find(selector).Length() == 0 {
		return engine.NewEngineError(engine.ErrCodeTimeout, "element not visible: "+selector, context.DeadlineExceeded)
	}
	return nil
}

// Close implements engine.Session.
func (s *Session) Close() error {
	s.root, s.doc = nil, nil
	return nil
}

// Navigations returns every URL passed to Navigate, in order.
func (s *Session) Navigations() []string { return append([]string(nil), s.navigations...) }

// Reloads returns how many times Reload was called.
func (s *Session) Reloads() int { return s.reloads }

// ScrollPositions returns every scroll offset set by scripts.
func (s *Session) ScrollPositions() []float64 { return append([]float64(nil), s.scrolls...) }
