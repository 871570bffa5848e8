package docdex

import (
	"context"
	"time"
)

// Browser is the automation contract the crawl core requires of a
// browser engine: navigable pages, load-state waiting, and cookie
// injection. Implementations may use any automation backend.
type Browser interface {
	// NewPage opens a fresh page. The caller must Close it.
	NewPage(ctx context.Context) (BrowserPage, error)

	// SetCookies injects cookies into the browser context, typically
	// from a loaded session.
	SetCookies(ctx context.Context, cookies []Cookie) error

	// Close releases browser resources.
	Close() error
}

// BrowserPage is one navigable page.
type BrowserPage interface {
	// Navigate loads the URL.
	Navigate(ctx context.Context, url string) error

	// WaitStable waits for the page to reach a stable load state,
	// bounded by timeout. Hitting the bound is not an error: the page
	// is used as-is so slow third-party widgets cannot stall a crawl.
	WaitStable(ctx context.Context, timeout time.Duration) error

	// URL returns the page's current URL after any redirects.
	URL() string

	// HTML returns the rendered document markup.
	HTML(ctx context.Context) (string, error)

	// Eval runs a JavaScript snippet in the page, discarding the result.
	Eval(ctx context.Context, js string) error

	// Close releases the page.
	Close() error
}
