package main_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/fwojciec/docdex"
	main "github.com/fwojciec/docdex/cmd/docdex"
	"github.com/fwojciec/docdex/index"
	"github.com/fwojciec/docdex/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestIndexer wires an Indexer whose engine emits the given results.
func newTestIndexer(tracker *index.Tracker, results []docdex.CrawlResult, crawlErr error, chunksPerPage int) *index.Indexer {
	engine := &mock.CrawlEngine{
		CrawlFn: func(ctx context.Context, startURL string) (<-chan docdex.CrawlResult, <-chan error) {
			out := make(chan docdex.CrawlResult, len(results))
			errc := make(chan error, 1)
			for _, r := range results {
				out <- r
			}
			close(out)
			errc <- crawlErr
			return out, errc
		},
	}
	return &index.Indexer{
		Registry: index.NewRegistry(),
		Tracker:  tracker,
		Processor: &mock.DocumentProcessor{
			ProcessFn: func(ctx context.Context, result *docdex.CrawlResult) (int, error) {
				return chunksPerPage, nil
			},
		},
		NewEngine: func() (docdex.CrawlEngine, error) { return engine, nil },
	}
}

func TestIndexCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints completion summary", func(t *testing.T) {
		t.Parallel()

		tracker := index.NewTracker()
		indexer := newTestIndexer(tracker, []docdex.CrawlResult{
			{URL: "https://docs.example.com/a", Content: "a"},
			{URL: "https://docs.example.com/b", Content: "b"},
		}, nil, 3)

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   stdout,
			Stderr:   &bytes.Buffer{},
			Sessions: &mock.SessionService{HasSessionFn: func(string) bool { return false }},
			Indexer:  indexer,
			Tracker:  tracker,
		}

		cmd := &main.IndexCmd{URL: "https://docs.example.com/docs"}
		require.NoError(t, cmd.Run(deps))

		output := stdout.String()
		assert.Contains(t, output, "Indexed https://docs.example.com/docs")
		assert.Contains(t, output, "2 pages")
		assert.Contains(t, output, "6 chunks")
	})

	t.Run("mentions the saved session when one exists", func(t *testing.T) {
		t.Parallel()

		tracker := index.NewTracker()
		indexer := newTestIndexer(tracker, []docdex.CrawlResult{
			{URL: "https://docs.example.com/a", Content: "a"},
		}, nil, 1)

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   stdout,
			Stderr:   &bytes.Buffer{},
			Sessions: &mock.SessionService{HasSessionFn: func(string) bool { return true }},
			Indexer:  indexer,
			Tracker:  tracker,
		}

		cmd := &main.IndexCmd{URL: "https://docs.example.com"}
		require.NoError(t, cmd.Run(deps))
		assert.Contains(t, stdout.String(), "Using saved session")
	})

	t.Run("failure is reported and returned", func(t *testing.T) {
		t.Parallel()

		tracker := index.NewTracker()
		indexer := newTestIndexer(tracker, nil, docdex.Errorf(docdex.EEXPIRED, "session expired"), 0)

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   &bytes.Buffer{},
			Stderr:   stderr,
			Sessions: &mock.SessionService{HasSessionFn: func(string) bool { return false }},
			Indexer:  indexer,
			Tracker:  tracker,
		}

		cmd := &main.IndexCmd{URL: "https://docs.example.com"}
		err := cmd.Run(deps)
		require.Error(t, err)
		assert.Equal(t, docdex.EINTERNAL, docdex.ErrorCode(err))
		assert.Contains(t, stderr.String(), "Failed indexing")
	})

	t.Run("invalid URL is rejected before crawling", func(t *testing.T) {
		t.Parallel()

		tracker := index.NewTracker()
		indexer := newTestIndexer(tracker, nil, nil, 0)

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      context.Background(),
			Stdout:   &bytes.Buffer{},
			Stderr:   stderr,
			Sessions: &mock.SessionService{HasSessionFn: func(string) bool { return false }},
			Indexer:  indexer,
			Tracker:  tracker,
		}

		cmd := &main.IndexCmd{URL: "not a url"}
		err := cmd.Run(deps)
		require.Error(t, err)
		assert.Equal(t, docdex.EINVALID, docdex.ErrorCode(err))
	})
}
