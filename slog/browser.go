package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docdex"
)

// Ensure LoggingBrowser implements docdex.Browser.
var _ docdex.Browser = (*LoggingBrowser)(nil)

// LoggingBrowser wraps a Browser with operation logging. Pages it opens
// log their navigations through the same logger.
type LoggingBrowser struct {
	next   docdex.Browser
	logger *slog.Logger
}

// NewLoggingBrowser creates a new LoggingBrowser.
func NewLoggingBrowser(next docdex.Browser, logger *slog.Logger) *LoggingBrowser {
	return &LoggingBrowser{next: next, logger: logger}
}

// NewPage delegates to the wrapped browser and wraps the page.
func (b *LoggingBrowser) NewPage(ctx context.Context) (docdex.BrowserPage, error) {
	page, err := b.next.NewPage(ctx)
	if err != nil {
		b.logger.Error("new page", "err", err)
		return nil, err
	}
	return &loggingPage{next: page, logger: b.logger}, nil
}

// SetCookies delegates to the wrapped browser and logs the count.
func (b *LoggingBrowser) SetCookies(ctx context.Context, cookies []docdex.Cookie) (err error) {
	defer func() {
		b.logger.Info("set cookies", "count", len(cookies), "err", err)
	}()
	return b.next.SetCookies(ctx, cookies)
}

// Close delegates to the wrapped browser.
func (b *LoggingBrowser) Close() error {
	return b.next.Close()
}

type loggingPage struct {
	next   docdex.BrowserPage
	logger *slog.Logger
}

func (p *loggingPage) Navigate(ctx context.Context, url string) (err error) {
	defer func(begin time.Time) {
		p.logger.Debug("navigate",
			"url", url,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Navigate(ctx, url)
}

func (p *loggingPage) WaitStable(ctx context.Context, timeout time.Duration) error {
	return p.next.WaitStable(ctx, timeout)
}

func (p *loggingPage) URL() string {
	return p.next.URL()
}

func (p *loggingPage) HTML(ctx context.Context) (string, error) {
	return p.next.HTML(ctx)
}

func (p *loggingPage) Eval(ctx context.Context, js string) error {
	return p.next.Eval(ctx, js)
}

func (p *loggingPage) Close() error {
	return p.next.Close()
}
