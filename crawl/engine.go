package crawl

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docdex"
)

// Engine defaults.
const (
	// DefaultMaxPages caps a crawl to prevent runaway discovery.
	DefaultMaxPages = 1000
	// DefaultLoadTimeout bounds the wait for a page's stable load state.
	DefaultLoadTimeout = 15 * time.Second
	// resultChannelBuffer bounds the producer ahead of the consumer.
	resultChannelBuffer = 8
)

// Compile-time interface verification.
var _ docdex.CrawlEngine = (*Engine)(nil)

// Engine drives a single site crawl. Each Engine owns its frontier and
// seen-set; it is never shared across operations, and a crawl is a
// one-shot: Crawl may be called once.
//
// Exported fields configure collaborators and must be set before Crawl.
type Engine struct {
	Browser  docdex.Browser
	Rules    []docdex.SiteRule
	Sitemaps docdex.SitemapService // optional; pre-seeds the frontier
	Limiter  *DomainLimiter        // optional politeness limiter
	Sink     ResultSink            // optional durable batch sink

	MaxPages    int
	LoadTimeout time.Duration

	pathPrefix string
	session    *docdex.StorageState

	frontier *Frontier
	cancel   atomic.Value // context.CancelFunc
	aborted  atomic.Bool
	started  atomic.Bool

	pagesVisited    atomic.Int64
	skippedOffSite  atomic.Int64
	pageFailures    atomic.Int64
	prepareFailures atomic.Int64
	linksDiscovered atomic.Int64
}

// SetPathPrefix restricts the crawl to URLs whose path is exactly the
// prefix or a segment-wise subpath of it. Must be called before Crawl.
func (e *Engine) SetPathPrefix(prefix string) {
	e.pathPrefix = prefix
}

// SetSession primes the crawl with an authenticated session. When set,
// a first-page redirect off the allowed domain or a detected login page
// is treated as session expiry. Must be called before Crawl.
func (e *Engine) SetSession(state *docdex.StorageState) {
	e.session = state
}

// Stats returns counters for the crawl so far.
func (e *Engine) Stats() docdex.CrawlStats {
	s := docdex.CrawlStats{
		PagesVisited:        e.pagesVisited.Load(),
		PagesSkippedOffSite: e.skippedOffSite.Load(),
		PageFailures:        e.pageFailures.Load(),
		PrepareFailures:     e.prepareFailures.Load(),
		LinksDiscovered:     e.linksDiscovered.Load(),
	}
	if e.frontier != nil {
		s.RejectedByHostname = e.frontier.RejectedByHostname()
		s.RejectedByPathPrefix = e.frontier.RejectedByPathPrefix()
		s.QueueLen = int64(e.frontier.Len())
	}
	return s
}

// Abort stops the crawl eagerly: beyond the cooperative token checks at
// page boundaries, the internal context is canceled so an in-flight
// navigation unblocks immediately. Idempotent.
func (e *Engine) Abort() {
	if !e.aborted.CompareAndSwap(false, true) {
		return
	}
	if cancel, ok := e.cancel.Load().(context.CancelFunc); ok && cancel != nil {
		cancel()
	}
}

// Crawl starts the crawl from startURL. Results arrive on the first
// channel in flush batches; the second channel delivers exactly one
// value (the terminal error, or nil) after the results channel closes.
func (e *Engine) Crawl(ctx context.Context, startURL string) (<-chan docdex.CrawlResult, <-chan error) {
	results := make(chan docdex.CrawlResult, resultChannelBuffer)
	errc := make(chan error, 1)

	if !e.started.CompareAndSwap(false, true) {
		close(results)
		errc <- docdex.Errorf(docdex.EINVALID, "crawl already consumed")
		close(errc)
		return results, errc
	}

	e.frontier = NewFrontier(e.Sink)
	if err := e.frontier.Initialize(startURL, e.pathPrefix); err != nil {
		close(results)
		errc <- err
		close(errc)
		return results, errc
	}

	crawlCtx, cancel := context.WithCancel(ctx)
	e.cancel.Store(cancel)
	if e.aborted.Load() {
		cancel()
	}

	go func() {
		defer cancel()
		err := e.run(crawlCtx, startURL, results)
		close(results)
		errc <- err
		close(errc)
	}()

	return results, errc
}

// run executes the crawl loop, emitting flushed batches on results and
// returning the terminal error.
func (e *Engine) run(ctx context.Context, startURL string, results chan<- docdex.CrawlResult) error {
	if e.session != nil {
		if err := e.Browser.SetCookies(ctx, e.session.Cookies); err != nil {
			return docdex.Errorf(docdex.EINTERNAL, "injecting session cookies: %v", err)
		}
	}

	e.seedFromSitemap(ctx, startURL)

	maxPages := e.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var finalErr error
	isFirstPage := true
	for finalErr == nil {
		// Token check before each frontier pop.
		if e.stopRequested(ctx) {
			break
		}
		entry, ok := e.frontier.Pop()
		if !ok {
			break
		}
		if e.pagesVisited.Load() >= int64(maxPages) {
			break
		}

		if e.Limiter != nil {
			if err := e.Limiter.Wait(ctx, e.frontier.AllowedHostname()); err != nil {
				break
			}
		}

		result, fatal, err := e.visit(ctx, entry, isFirstPage)
		isFirstPage = false

		switch {
		case fatal:
			// Session expiry or first-page domain escape: the data
			// would be systematically wrong, so the whole crawl stops.
			finalErr = err
		case err != nil:
			// Single-page failures are swallowed; partial results are
			// still useful.
			e.pageFailures.Add(1)
		case result != nil:
			e.pagesVisited.Add(1)
			e.frontier.AddResult(*result)
			if e.frontier.HasEnoughResults() {
				e.flush(ctx, results)
			}
		}
	}

	if finalErr == nil {
		e.flush(ctx, results)
	}
	e.frontier.Cleanup()

	if finalErr == nil && e.stopRequested(ctx) {
		finalErr = docdex.Errorf(docdex.ECANCELED, "crawl canceled")
	}
	return finalErr
}

// visit fetches one page and produces its result. A nil result with a
// nil error means the page was skipped (redirected off-site past the
// first page). The fatal flag marks errors that abort the whole crawl.
func (e *Engine) visit(ctx context.Context, entry Entry, isFirstPage bool) (result *docdex.CrawlResult, fatal bool, err error) {
	page, err := e.Browser.NewPage(ctx)
	if err != nil {
		return nil, false, err
	}
	defer page.Close()

	if err := page.Navigate(ctx, entry.URL); err != nil {
		return nil, false, err
	}

	loadTimeout := e.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	if err := page.WaitStable(ctx, loadTimeout); err != nil {
		return nil, false, err
	}

	// Resolve the actual URL after any redirects.
	actual := page.URL()
	if actual == "" {
		actual = entry.URL
	}
	actualHost := hostname(actual)

	if !e.frontier.AllowsHost(actualHost) {
		if !isFirstPage {
			e.skippedOffSite.Add(1)
			return nil, false, nil
		}
		if e.session != nil {
			// A first-page redirect off the domain with a session set is
			// the signature of an expired session bouncing to an
			// identity provider.
			return nil, true, docdex.Errorf(docdex.EEXPIRED,
				"session expired: expected %s, redirected to %s", entry.URL, actual)
		}
		return nil, true, docdex.Errorf(docdex.EINVALID,
			"start URL redirected off the allowed domain: %s", actual)
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, false, err
	}

	if isFirstPage && e.session != nil {
		if confidence, isLogin := DetectLoginPage(actual, html); isLogin {
			return nil, true, docdex.Errorf(docdex.EEXPIRED,
				"session expired: login page detected at %s (confidence %.2f)", actual, confidence)
		}
	}

	rule := e.matchRule(html)
	if rule == nil {
		return nil, false, docdex.Errorf(docdex.EINVALID, "no site rule matched %s", actual)
	}
	if err := rule.Prepare(ctx, page); err != nil {
		// A failed prepare hook leaves the page as loaded; extraction
		// proceeds on the unmodified markup and the failure is counted.
		e.prepareFailures.Add(1)
	} else {
		// Prepare may have mutated the DOM (expanded navigation etc.);
		// re-read the markup before link discovery and extraction.
		if refreshed, herr := page.HTML(ctx); herr == nil {
			html = refreshed
		}
	}

	e.discoverLinks(html, actual, rule.LinkSelectors())

	extractor := rule.Extractor()
	extracted, err := extractor.Extract(html)
	if err != nil {
		return nil, false, err
	}
	content := normalizeWhitespace(extracted.ContentHTML)
	if content == "" {
		return nil, false, docdex.Errorf(docdex.EINVALID, "no content extracted from %s", actual)
	}

	return &docdex.CrawlResult{
		URL:           actual,
		Path:          urlPath(actual),
		Title:         extracted.Title,
		Content:       content,
		ExtractorUsed: extractor.Name(),
	}, false, nil
}

// discoverLinks enqueues same-site links found on the page, skipping
// pure-fragment links and applying the frontier's containment filters.
func (e *Engine) discoverLinks(html, baseURL string, selectors []string) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	if len(selectors) == 0 {
		selectors = []string{"a[href]"}
	}
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok || href == "" || strings.HasPrefix(href, "#") {
				return
			}
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			resolved := base.ResolveReference(ref)
			if resolved.Scheme != "http" && resolved.Scheme != "https" {
				return
			}
			normalized, ok := e.frontier.FilterAndTransform(resolved.String())
			if !ok {
				return
			}
			if e.frontier.Push(normalized) {
				e.linksDiscovered.Add(1)
			}
		})
	}
}

// matchRule returns the first rule whose Detect reports a match.
func (e *Engine) matchRule(html string) docdex.SiteRule {
	for _, rule := range e.Rules {
		if rule.Detect(html) {
			return rule
		}
	}
	return nil
}

// seedFromSitemap pushes in-scope sitemap URLs into the frontier.
// Sitemap failures are ignored; recursive discovery covers the gap.
func (e *Engine) seedFromSitemap(ctx context.Context, startURL string) {
	if e.Sitemaps == nil {
		return
	}
	urls, err := e.Sitemaps.DiscoverURLs(ctx, startURL)
	if err != nil {
		return
	}
	for _, u := range urls {
		normalized, ok := e.frontier.FilterAndTransform(u)
		if !ok {
			continue
		}
		if e.frontier.Push(normalized) {
			e.linksDiscovered.Add(1)
		}
	}
}

// flush drains the frontier's result buffer onto the results channel.
func (e *Engine) flush(ctx context.Context, results chan<- docdex.CrawlResult) {
	batch, err := e.frontier.ProcessBatch(ctx)
	if err != nil {
		e.pageFailures.Add(int64(len(batch)))
		return
	}
	for _, r := range batch {
		select {
		case results <- r:
		case <-ctx.Done():
			return
		}
	}
}

// stopRequested reports whether the crawl should stop issuing new page
// fetches.
func (e *Engine) stopRequested(ctx context.Context) bool {
	return e.aborted.Load() || ctx.Err() != nil
}

var (
	blankRuns    = regexp.MustCompile(`\n{3,}`)
	trailingWS   = regexp.MustCompile(`[ \t]+\n`)
	carriageRuns = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// normalizeWhitespace collapses runs of blank lines and trailing
// horizontal whitespace without disturbing markup structure.
func normalizeWhitespace(s string) string {
	s = carriageRuns.Replace(s)
	s = trailingWS.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// hostname extracts the lowercase hostname from a URL string.
func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// urlPath extracts the path component from a URL string.
func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
