package static

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/jobcrawl/internal/auth"
	"github.com/law-makers/jobcrawl/internal/engine"
	"github.com/law-makers/jobcrawl/internal/retry"
)

// Page is one loaded document.
type Page struct {
	URL  string // final URL after redirects
	HTML string
}

// Loader resolves a URL to a document.
type Loader interface {
	Load(ctx context.Context, url string) (Page, error)
}

const maxRedirects = 5

// Archive serves captured documents keyed by URL. A URL may hold several
// versions; each load serves the next one and the last version repeats, so a
// page can start as a challenge and turn genuine on reload.
type Archive struct {
	mu        sync.Mutex
	pages     map[string][]string
	served    map[string]int
	redirects map[string]string
	order     []string
}

// NewArchive returns an empty archive.
func NewArchive() *Archive {
	return &Archive{
		pages:     make(map[string][]string),
		served:    make(map[string]int),
		redirects: make(map[string]string),
	}
}

// Add registers versions of the document served at url.
func (a *Archive) Add(url string, versions ...string) *Archive {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pages[url]; !ok {
		a.order = append(a.order, url)
	}
	a.pages[url] = append(a.pages[url], versions...)
	return a
}

// Redirect makes loads of from land on to.
func (a *Archive) Redirect(from, to string) *Archive {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.redirects[from] = to
	return a
}

// URLs returns the registered URLs in insertion order.
func (a *Archive) URLs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}

// Served reports how many times url has been loaded.
func (a *Archive) Served(url string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.served[url]
}

// Load implements Loader.
func (a *Archive) Load(ctx context.Context, rawURL string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	target := rawURL
	for i := 0; i < maxRedirects; i++ {
		next, ok := a.redirects[target]
		if !ok {
			break
		}
		target = next
	}

	versions, ok := a.pages[target]
	if !ok || len(versions) == 0 {
		return Page{}, engine.NewEngineError(engine.ErrCodePageLoad, "no captured document for "+target, engine.ErrPageLoad)
	}
	idx := a.served[target]
	a.served[target]++
	if idx >= len(versions) {
		idx = len(versions) - 1
	}
	return Page{URL: target, HTML: versions[idx]}, nil
}

var capturedPageRe = regexp.MustCompile(`^debug_page(\d+)\.html$`)

// capturedMeta mirrors the fields of the diagnostics sidecar file that replay
// needs.
type capturedMeta struct {
	URL string `json:"url"`
}

// LoadDir builds an archive from a diagnostics directory. Each
// debug_page{N}.html is keyed by the url in its debug_page{N}.json sidecar,
// or by a file:// URL when the sidecar is missing. Pages are ordered by N.
func LoadDir(dir string) (*Archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture directory: %w", err)
	}

	type captured struct {
		index int
		path  string
	}
	var found []captured
	for _, e := range entries {
		m := capturedPageRe.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		found = append(found, captured{index: n, path: filepath.Join(dir, e.Name())})
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no debug_page*.html files in %s", dir)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].index < found[j].index })

	a := NewArchive()
	for _, c := range found {
		body, err := os.ReadFile(c.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", c.path, err)
		}
		key := sidecarURL(strings.TrimSuffix(c.path, ".html") + ".json")
		if key == "" {
			abs, _ := filepath.Abs(c.path)
			key = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
		}
		a.Add(key, string(body))
	}
	return a, nil
}

func sidecarURL(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var meta capturedMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return ""
	}
	return meta.URL
}

// HTTPLoader fetches documents over plain HTTP. It does not run page scripts,
// so it only sees what the server renders.
type HTTPLoader struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
	retry     retry.Config
}

// HTTPOptions configures an HTTPLoader.
type HTTPOptions struct {
	Client    *http.Client
	UserAgent string
	Headers   map[string]string
	Timeout   time.Duration
	Session   *auth.SessionData
	Retry     *retry.Config
}

// NewHTTPLoader creates an HTTP loader. Cookies and headers from a stored
// operator session are injected when opts.Session is set.
func NewHTTPLoader(opts HTTPOptions) (*HTTPLoader, error) {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	headers := map[string]string{}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	if opts.Session != nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		target, err := url.Parse(opts.Session.URL)
		if err != nil || target.Host == "" {
			return nil, fmt.Errorf("session %q has no usable URL", opts.Session.Name)
		}
		jar.SetCookies(target, opts.Session.HTTPCookies())
		client.Jar = jar
		for k, v := range opts.Session.Headers {
			headers[k] = v
		}
	}

	rc := retry.DefaultConfig()
	if opts.Retry != nil {
		rc = *opts.Retry
	}
	return &HTTPLoader{client: client, userAgent: opts.UserAgent, headers: headers, retry: rc}, nil
}

// Load implements Loader.
func (l *HTTPLoader) Load(ctx context.Context, rawURL string) (Page, error) {
	var page Page
	err := retry.WithRetry(ctx, l.retry, func() error {
		p, err := l.fetch(ctx, rawURL)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		return Page{}, engine.NewEngineError(engine.ErrCodePageLoad, "fetch failed", fmt.Errorf("%w: %v", engine.ErrPageLoad, err))
	}
	return page, nil
}

func (l *HTTPLoader) fetch(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", engine.AcceptLanguage)
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	for k, v := range l.headers {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	// Challenge pages come back as 403 with a body the gate can judge, so only
	// server-side failures are treated as errors here.
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return Page{}, retry.FromResponse(resp, time.Now())
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("failed to read body: %w", err)
	}
	return Page{URL: resp.Request.URL.String(), HTML: string(body)}, nil
}
