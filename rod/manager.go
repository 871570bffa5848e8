package rod

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/docdex"
)

// DefaultRecycleAfter is the default page count before the crawl
// browser is recycled.
const DefaultRecycleAfter = 75

// Compile-time interface verification.
var _ docdex.Browser = (*Manager)(nil)

// Manager implements docdex.Browser over a periodically recycled
// browser. Chrome accumulates memory over long crawls and never returns
// to its baseline even with proper page cleanup, so the underlying
// process is replaced after a fixed number of pages. Cookies injected
// through SetCookies are remembered and re-applied to each replacement,
// keeping an authenticated crawl authenticated across recycles.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu           sync.Mutex
	browser      docdex.Browser
	cookies      []docdex.Cookie
	launch       func() (docdex.Browser, error)
	pageCount    int64
	recycleAfter int64
	closed       atomic.Bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRecycleAfter sets the page count before recycling.
func WithRecycleAfter(n int64) ManagerOption {
	return func(m *Manager) { m.recycleAfter = n }
}

// WithLauncher overrides how browsers are created. Used by tests to
// stand in a fake browser; the default launches headless Chrome.
func WithLauncher(launch func() (docdex.Browser, error)) ManagerOption {
	return func(m *Manager) { m.launch = launch }
}

// NewManager launches the initial browser. Close must be called when
// the Manager is no longer needed.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		recycleAfter: DefaultRecycleAfter,
		launch:       func() (docdex.Browser, error) { return NewBrowser() },
	}
	for _, opt := range opts {
		opt(m)
	}

	browser, err := m.launch()
	if err != nil {
		return nil, err
	}
	m.browser = browser
	return m, nil
}

// NewPage opens a page on the current browser, recycling first if the
// page count reached the threshold. Every successfully opened page
// counts toward the next recycle.
func (m *Manager) NewPage(ctx context.Context) (docdex.BrowserPage, error) {
	m.mu.Lock()
	if atomic.LoadInt64(&m.pageCount) >= m.recycleAfter {
		m.recycle(ctx)
	}
	b := m.browser
	m.mu.Unlock()

	page, err := b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	m.PageProcessed()
	return page, nil
}

// SetCookies injects cookies into the current browser and remembers
// them for re-injection after a recycle.
func (m *Manager) SetCookies(ctx context.Context, cookies []docdex.Cookie) error {
	m.mu.Lock()
	m.cookies = append([]docdex.Cookie(nil), cookies...)
	b := m.browser
	m.mu.Unlock()
	return b.SetCookies(ctx, cookies)
}

// Browser returns the current browser, recycling first if the page
// count reached the threshold.
func (m *Manager) Browser() docdex.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()

	if atomic.LoadInt64(&m.pageCount) >= m.recycleAfter {
		m.recycle(context.Background())
	}
	return m.browser
}

// PageProcessed records progress toward the recycling threshold.
func (m *Manager) PageProcessed() {
	atomic.AddInt64(&m.pageCount, 1)
}

// Close releases the managed browser. Safe to call multiple times.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser == nil {
		return nil
	}
	err := m.browser.Close()
	m.browser = nil
	return err
}

// recycle replaces the browser with a fresh instance and re-applies
// the remembered cookies. If the replacement cannot be launched or
// primed, the old browser is kept; a tired browser beats no browser.
// Must be called with mu held.
func (m *Manager) recycle(ctx context.Context) {
	fresh, err := m.launch()
	if err != nil {
		return
	}
	if len(m.cookies) > 0 {
		if err := fresh.SetCookies(ctx, m.cookies); err != nil {
			_ = fresh.Close()
			return
		}
	}
	old := m.browser
	m.browser = fresh
	atomic.StoreInt64(&m.pageCount, 0)
	if old != nil {
		_ = old.Close()
	}
}
