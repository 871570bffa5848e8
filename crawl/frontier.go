// Package crawl provides the site crawl core: the URL frontier with
// containment filtering, the crawl engine, login-page detection, and
// conflict retry helpers.
package crawl

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/bloom"
)

// Frontier sizing and batching constants.
const (
	// frontierExpectedURLs sizes the Bloom seen-set.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the acceptable dedup false positive rate.
	frontierFalsePositiveRate = 0.01
	// batchThreshold is the buffered-result count that triggers a flush.
	batchThreshold = 20
	// flushChunkSize is the sub-chunk size used when flushing to the sink.
	flushChunkSize = 5
)

// Entry is one queued URL. UniqueKey is the URL's path plus query with
// the fragment stripped, so URLs differing only by fragment collapse to
// a single entry.
type Entry struct {
	URL       string
	UniqueKey string
}

// ResultSink receives flushed crawl results. Implementations provide
// durability for the lifetime of one crawl.
type ResultSink interface {
	Append(ctx context.Context, results []docdex.CrawlResult) error
}

// Frontier maintains the visitation queue and the accumulated result
// buffer for one crawl. It applies hostname containment and optional
// path-prefix filters to discovered links. Safe for concurrent use.
type Frontier struct {
	mu         sync.Mutex
	host       string // allowed hostname, lowercase
	pathPrefix string
	seen       *bloom.SeenSet
	queue      []Entry
	buffer     []docdex.CrawlResult
	sink       ResultSink

	rejectedHost atomic.Int64
	rejectedPath atomic.Int64
}

// NewFrontier creates a Frontier flushing batches to sink.
// A nil sink drops flushed batches after returning them.
func NewFrontier(sink ResultSink) *Frontier {
	return &Frontier{
		seen: bloom.NewSeenSet(frontierExpectedURLs, frontierFalsePositiveRate),
		sink: sink,
	}
}

// Initialize resets the queue and result buffer, derives the allowed
// hostname and optional path prefix from startURL, and seeds the queue
// with one entry keyed by path+query. The startURL's fragment is
// stripped. An empty pathPrefix disables path filtering.
func (f *Frontier) Initialize(startURL, pathPrefix string) error {
	u, err := url.Parse(startURL)
	if err != nil {
		return docdex.Errorf(docdex.EINVALID, "invalid start URL %q: %v", startURL, err)
	}
	if u.Hostname() == "" {
		return docdex.Errorf(docdex.EINVALID, "start URL %q has no hostname", startURL)
	}
	u.Fragment = ""

	f.mu.Lock()
	defer f.mu.Unlock()

	f.host = strings.ToLower(u.Hostname())
	f.pathPrefix = strings.TrimSuffix(pathPrefix, "/")
	f.seen.Reset()
	f.queue = f.queue[:0]
	f.buffer = f.buffer[:0]
	f.rejectedHost.Store(0)
	f.rejectedPath.Store(0)

	key := uniqueKey(u)
	f.seen.Add(key)
	f.queue = append(f.queue, Entry{URL: u.String(), UniqueKey: key})
	return nil
}

// AllowedHostname returns the hostname derived from the start URL.
func (f *Frontier) AllowedHostname() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.host
}

// AllowsHost reports whether host is the allowed hostname or a strict
// subdomain of it. Sibling subdomains and parent domains are not
// allowed. The comparison is case-insensitive.
func (f *Frontier) AllowsHost(host string) bool {
	f.mu.Lock()
	allowed := f.host
	f.mu.Unlock()
	return hostContained(allowed, host)
}

// FilterAndTransform checks a candidate link against the containment
// rules. It returns the normalized URL (fragment stripped) and true
// when the candidate is in scope. Rejections by hostname and by path
// prefix are counted separately.
func (f *Frontier) FilterAndTransform(candidate string) (string, bool) {
	u, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}

	f.mu.Lock()
	allowed, prefix := f.host, f.pathPrefix
	f.mu.Unlock()

	if !hostContained(allowed, u.Hostname()) {
		f.rejectedHost.Add(1)
		return "", false
	}
	if prefix != "" && u.Path != prefix && !strings.HasPrefix(u.Path, prefix+"/") {
		f.rejectedPath.Add(1)
		return "", false
	}

	u.Fragment = ""
	return u.String(), true
}

// Push queues a URL that already passed FilterAndTransform.
// Returns false if an entry with the same path+query has been seen.
func (f *Frontier) Push(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	u.Fragment = ""
	key := uniqueKey(u)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.Seen(key) {
		return false
	}
	f.seen.Add(key)
	f.queue = append(f.queue, Entry{URL: u.String(), UniqueKey: key})
	return true
}

// Pop returns the next entry in discovery order.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return Entry{}, false
	}
	e := f.queue[0]
	f.queue = f.queue[1:]
	return e, true
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// AddResult buffers a crawl result for batched flushing.
func (f *Frontier) AddResult(r docdex.CrawlResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffer = append(f.buffer, r)
}

// HasEnoughResults reports whether the buffer has reached the batch
// threshold.
func (f *Frontier) HasEnoughResults() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buffer) >= batchThreshold
}

// ProcessBatch flushes the buffered results to the sink in fixed-size
// sub-chunks and returns the flushed slice. The buffer is cleared even
// when the sink fails part-way; the error is returned so the caller can
// account for the loss.
func (f *Frontier) ProcessBatch(ctx context.Context) ([]docdex.CrawlResult, error) {
	f.mu.Lock()
	batch := f.buffer
	f.buffer = nil
	f.mu.Unlock()

	if len(batch) == 0 {
		return nil, nil
	}

	if f.sink != nil {
		for start := 0; start < len(batch); start += flushChunkSize {
			end := min(start+flushChunkSize, len(batch))
			if err := f.sink.Append(ctx, batch[start:end]); err != nil {
				return batch, err
			}
		}
	}
	return batch, nil
}

// RejectedByHostname returns the count of links filtered for falling
// outside the allowed hostname.
func (f *Frontier) RejectedByHostname() int64 {
	return f.rejectedHost.Load()
}

// RejectedByPathPrefix returns the count of links filtered by the path
// prefix rule.
func (f *Frontier) RejectedByPathPrefix() int64 {
	return f.rejectedPath.Load()
}

// Cleanup drops the queue and clears buffers. Errors from the drop are
// swallowed: cleanup runs on every crawl exit path and must not mask
// the crawl's own outcome.
func (f *Frontier) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = nil
	f.buffer = nil
}

// uniqueKey returns the dedup key for a URL: path plus raw query,
// fragment excluded.
func uniqueKey(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		return path + "?" + u.RawQuery
	}
	return path
}

// hostContained reports whether candidate equals allowed or is a strict
// subdomain of it, case-insensitively.
func hostContained(allowed, candidate string) bool {
	if allowed == "" {
		return false
	}
	c := strings.ToLower(candidate)
	return c == allowed || strings.HasSuffix(c, "."+allowed)
}
