package docdex

import "context"

// CrawlResult represents one page produced by a crawl. Results are
// ephemeral: they are handed to a DocumentProcessor and not retained
// by the crawl core.
type CrawlResult struct {
	URL           string
	Path          string
	Title         string
	Content       string
	ExtractorUsed string
}

// CrawlStats exposes observability counters for one crawl.
type CrawlStats struct {
	PagesVisited         int64
	PagesSkippedOffSite  int64
	PageFailures         int64
	PrepareFailures      int64
	LinksDiscovered      int64
	RejectedByHostname   int64
	RejectedByPathPrefix int64
	QueueLen             int64
}

// CrawlEngine drives a single site crawl: it fetches pages through a
// browser automation collaborator, runs extraction strategies, detects
// domain escape and session expiry, and yields results as a lazy,
// finite, non-restartable sequence.
type CrawlEngine interface {
	// Crawl starts the crawl. Results arrive on the first channel in
	// flush batches; the second channel delivers exactly one value (the
	// terminal error, or nil) after the results channel is closed.
	// Cancel ctx or call Abort to stop early.
	Crawl(ctx context.Context, startURL string) (<-chan CrawlResult, <-chan error)

	// Abort stops the crawl eagerly, including mid-fetch. Idempotent and
	// safe to call from outside the consumption loop.
	Abort()

	// SetPathPrefix restricts the crawl to URLs under the given path
	// segment prefix. Must be called before Crawl.
	SetPathPrefix(prefix string)

	// SetSession primes the crawl with an authenticated browsing session.
	// Must be called before Crawl.
	SetSession(state *StorageState)

	// Stats returns counters for the crawl so far.
	Stats() CrawlStats
}
