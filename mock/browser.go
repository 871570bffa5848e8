package mock

import (
	"context"
	"time"

	"github.com/fwojciec/docdex"
)

var _ docdex.Browser = (*Browser)(nil)

// Browser is a mock implementation of docdex.Browser.
type Browser struct {
	NewPageFn    func(ctx context.Context) (docdex.BrowserPage, error)
	SetCookiesFn func(ctx context.Context, cookies []docdex.Cookie) error
	CloseFn      func() error
}

func (b *Browser) NewPage(ctx context.Context) (docdex.BrowserPage, error) {
	return b.NewPageFn(ctx)
}

func (b *Browser) SetCookies(ctx context.Context, cookies []docdex.Cookie) error {
	if b.SetCookiesFn == nil {
		return nil
	}
	return b.SetCookiesFn(ctx, cookies)
}

func (b *Browser) Close() error {
	if b.CloseFn == nil {
		return nil
	}
	return b.CloseFn()
}

var _ docdex.BrowserPage = (*BrowserPage)(nil)

// BrowserPage is a mock implementation of docdex.BrowserPage.
type BrowserPage struct {
	NavigateFn   func(ctx context.Context, url string) error
	WaitStableFn func(ctx context.Context, timeout time.Duration) error
	URLFn        func() string
	HTMLFn       func(ctx context.Context) (string, error)
	EvalFn       func(ctx context.Context, js string) error
	CloseFn      func() error
}

func (p *BrowserPage) Navigate(ctx context.Context, url string) error {
	return p.NavigateFn(ctx, url)
}

func (p *BrowserPage) WaitStable(ctx context.Context, timeout time.Duration) error {
	if p.WaitStableFn == nil {
		return nil
	}
	return p.WaitStableFn(ctx, timeout)
}

func (p *BrowserPage) URL() string {
	return p.URLFn()
}

func (p *BrowserPage) HTML(ctx context.Context) (string, error) {
	return p.HTMLFn(ctx)
}

func (p *BrowserPage) Eval(ctx context.Context, js string) error {
	if p.EvalFn == nil {
		return nil
	}
	return p.EvalFn(ctx, js)
}

func (p *BrowserPage) Close() error {
	if p.CloseFn == nil {
		return nil
	}
	return p.CloseFn()
}
