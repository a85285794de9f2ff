// Package engine defines the browser session contract shared by the pipeline
// stages and the error taxonomy they report with.
package engine

import (
	"context"
	"time"
)

// AcceptLanguage is sent with every request so the site renders Spanish first.
const AcceptLanguage = "es-CR,es;q=0.9,en;q=0.8"

// Session is a single browser tab driven by the pipeline. It is owned by one
// caller at a time and is not safe for concurrent use.
type Session interface {
	// Navigate loads url and returns once the document is ready.
	Navigate(ctx context.Context, url string) error

	// Reload reloads the current document.
	Reload(ctx context.Context) error

	// Back goes one step back in history.
	Back(ctx context.Context) error

	// CurrentURL returns the URL of the current document after redirects.
	CurrentURL(ctx context.Context) (string, error)

	// RenderedText returns the visible text of the current document.
	RenderedText(ctx context.Context) (string, error)

	// HTML returns the serialized DOM of the current document.
	HTML(ctx context.Context) (string, error)

	// Evaluate runs script in the page and decodes its result into out (may be nil).
	Evaluate(ctx context.Context, script string, out any) error

	// Screenshot captures the viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// WaitVisible waits up to timeout for selector to become visible.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Name identifies the implementation in logs.
	Name() string

	// Close releases the session and its browser.
	Close() error
}
