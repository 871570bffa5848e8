// Package rod implements the browser automation contracts using Chrome
// DevTools Protocol via go-rod: the crawl browser, a recycling
// lifecycle manager, and the interactive login flow.
package rod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/docdex"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Compile-time interface verification.
var (
	_ docdex.Browser     = (*Browser)(nil)
	_ docdex.BrowserPage = (*Page)(nil)
)

// Browser implements docdex.Browser over a headless Chrome instance.
// Safe for concurrent use by multiple goroutines.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewBrowser launches a headless Chrome browser. Close must be called
// when the Browser is no longer needed.
func NewBrowser() (*Browser, error) {
	lnchr := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)

	u, err := lnchr.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return &Browser{browser: browser, launcher: lnchr}, nil
}

// NewPage opens a fresh page.
func (b *Browser) NewPage(ctx context.Context) (docdex.BrowserPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	return &Page{page: page}, nil
}

// SetCookies injects cookies into the browser context.
func (b *Browser) SetCookies(ctx context.Context, cookies []docdex.Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		if c.SameSite != "" {
			param.SameSite = proto.NetworkCookieSameSite(c.SameSite)
		}
		params = append(params, param)
	}
	return b.browser.SetCookies(params)
}

// Close releases browser resources.
func (b *Browser) Close() error {
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Kill()
	}
	return err
}

// Page implements docdex.BrowserPage over one rod page.
type Page struct {
	page *rod.Page
}

// Navigate loads the URL.
func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.page.Context(ctx).Navigate(url)
}

// WaitStable waits for the page load event, bounded by timeout. Hitting
// the bound is not an error: slow third-party widgets must not stall
// the crawl, so the page is used in whatever state it reached.
func (p *Page) WaitStable(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.page.Context(waitCtx).WaitLoad()
	if err != nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil
	}
	return err
}

// URL returns the page's current URL after any redirects.
func (p *Page) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// HTML returns the rendered document markup.
func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// Eval runs a JavaScript snippet in the page, discarding the result.
func (p *Page) Eval(ctx context.Context, js string) error {
	_, err := p.page.Context(ctx).Eval(js)
	return err
}

// Close releases the page.
func (p *Page) Close() error {
	return p.page.Close()
}

// DetectBrowserKind reports which Chromium flavor rod would drive,
// derived from the resolved browser binary. Returns "chromium" when
// nothing more specific can be determined.
func DetectBrowserKind() string {
	path, has := launcher.LookPath()
	if !has {
		return "chromium"
	}
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "edge"):
		return "edge"
	case strings.Contains(lower, "brave"):
		return "brave"
	case strings.Contains(lower, "chromium"):
		return "chromium"
	case strings.Contains(lower, "chrome"):
		return "chrome"
	}
	return "chromium"
}
