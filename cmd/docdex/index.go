package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fwojciec/docdex"
)

// Run executes the index command.
func (c *IndexCmd) Run(deps *Dependencies) error {
	pathPrefix := c.PathPrefix
	if pathPrefix == "" {
		if u, err := url.Parse(c.URL); err == nil {
			pathPrefix = u.Path
		}
	}

	// Print terminal transitions as they happen; progress goes through
	// the logger at debug level.
	deps.Tracker.AddStatusListener(func(rec docdex.StatusRecord) {
		if !rec.Status.Terminal() {
			return
		}
		switch rec.Status {
		case docdex.StatusComplete:
			fmt.Fprintf(deps.Stdout, "Indexed %s: %d pages, %d chunks\n",
				rec.URL, rec.PagesProcessed, rec.ChunksCreated)
		case docdex.StatusCancelled:
			fmt.Fprintf(deps.Stderr, "Cancelled indexing %s\n", rec.URL)
		case docdex.StatusFailed:
			fmt.Fprintf(deps.Stderr, "Failed indexing %s: %s\n", rec.URL, rec.ErrorMessage)
		}
	})

	if deps.Sessions.HasSession(c.URL) {
		fmt.Fprintf(deps.Stdout, "Using saved session for %s\n", c.URL)
	}

	id, err := deps.Indexer.Index(deps.Ctx, c.URL, pathPrefix)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docdex.ErrorMessage(err))
		return err
	}

	rec, err := deps.Indexer.Wait(deps.Ctx, id, 500*time.Millisecond)
	if err != nil {
		return err
	}
	if rec.Status != docdex.StatusComplete {
		return docdex.Errorf(docdex.EINTERNAL, "indexing ended with status %q", rec.Status)
	}
	return nil
}
