package index

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/docdex"
	"github.com/google/uuid"
)

// Indexer drives one crawl-and-index operation per request: it claims
// the registry key, primes the engine with a stored session when one
// exists, consumes the crawl's result stream into the processor, and
// maps the outcome onto the status tracker. Operations never raise on
// cancellation; all other failures end as a failed status with a
// sanitized message.
type Indexer struct {
	Registry  *Registry
	Tracker   *Tracker
	Processor docdex.DocumentProcessor
	Sessions  docdex.SessionService // optional

	// NewEngine builds a fresh engine per operation; each engine owns
	// its frontier and is never shared.
	NewEngine func() (docdex.CrawlEngine, error)
}

// Index starts a background indexing operation for rawURL, preempting
// any operation already running for the same normalized URL. It returns
// the operation's status id immediately.
func (ix *Indexer) Index(ctx context.Context, rawURL, pathPrefix string) (string, error) {
	key, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	opCtx := ix.Registry.StartOperation(ctx, key)
	id := uuid.New().String()
	ix.Tracker.StartIndexing(id, rawURL, "")

	go ix.run(opCtx, id, key, rawURL, pathPrefix)
	return id, nil
}

// Wait polls the tracker until the operation reaches a terminal status.
func (ix *Indexer) Wait(ctx context.Context, id string, poll time.Duration) (docdex.StatusRecord, error) {
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		rec, ok := ix.Tracker.GetStatus(id)
		if !ok {
			return docdex.StatusRecord{}, docdex.Errorf(docdex.ENOTFOUND, "operation %q not found", id)
		}
		if rec.Status.Terminal() {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-ticker.C:
		}
	}
}

// run executes one operation to its terminal status.
func (ix *Indexer) run(ctx context.Context, id, key, rawURL, pathPrefix string) {
	defer ix.Registry.CompleteOperation(key)

	engine, err := ix.NewEngine()
	if err != nil {
		ix.Tracker.FailIndexing(id, docdex.ErrorMessage(err))
		return
	}
	engine.SetPathPrefix(pathPrefix)

	sessionUsed := false
	if ix.Sessions != nil {
		if state, err := ix.Sessions.LoadSession(rawURL); err == nil && state != nil {
			engine.SetSession(state)
			sessionUsed = true
		}
	}

	results, errc := engine.Crawl(ctx, rawURL)

	var processed, chunksTotal, pageFailures int
	for result := range results {
		chunks, perr := ix.Processor.Process(ctx, &result)
		if perr != nil {
			// A single page failing to process does not abort the
			// operation; partial results are still useful.
			pageFailures++
		} else {
			processed++
			chunksTotal += chunks
		}
		ix.report(id, engine, processed, chunksTotal)
	}
	crawlErr := <-errc

	stats := engine.Stats()
	found := int(stats.PagesVisited)
	ix.Tracker.UpdateStats(id, docdex.StatusStats{
		PagesFound:     &found,
		PagesProcessed: &processed,
		ChunksCreated:  &chunksTotal,
	})

	switch {
	case ctx.Err() != nil || docdex.ErrorCode(crawlErr) == docdex.ECANCELED:
		ix.Tracker.CancelIndexing(id)
	case docdex.ErrorCode(crawlErr) == docdex.EEXPIRED:
		if sessionUsed && ix.Sessions != nil {
			// The stored session is dead; clearing it makes the next
			// attempt run unauthenticated instead of failing the same way.
			_ = ix.Sessions.ClearSession(rawURL)
		}
		ix.Tracker.FailIndexing(id, docdex.ErrorMessage(crawlErr)+". Re-authenticate with 'docdex login' and retry.")
	case crawlErr != nil:
		ix.Tracker.FailIndexing(id, docdex.ErrorMessage(crawlErr))
	case chunksTotal == 0:
		ix.Tracker.FailIndexing(id, "no content extracted")
	default:
		ix.Tracker.CompleteIndexing(id)
	}
}

// report pushes progress and counters for a running operation. With no
// known total, progress is estimated from the processed count against
// the queue still ahead.
func (ix *Indexer) report(id string, engine docdex.CrawlEngine, processed, chunks int) {
	stats := engine.Stats()
	found := int(stats.PagesVisited + stats.QueueLen)
	progress := 0.0
	if total := processed + int(stats.QueueLen) + 1; total > 0 {
		progress = float64(processed) / float64(total)
	}
	ix.Tracker.UpdateStats(id, docdex.StatusStats{
		PagesFound:     &found,
		PagesProcessed: &processed,
		ChunksCreated:  &chunks,
	})
	ix.Tracker.UpdateProgress(id, progress, fmt.Sprintf("Indexed %d pages", processed))
}
