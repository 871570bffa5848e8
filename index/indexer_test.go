package index_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/index"
	"github.com/fwojciec/docdex/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCrawl returns an engine whose Crawl emits the given results and
// then the given terminal error.
func stubCrawl(results []docdex.CrawlResult, crawlErr error) *mock.CrawlEngine {
	return &mock.CrawlEngine{
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
}

func newIndexer(engine docdex.CrawlEngine, processor docdex.DocumentProcessor, sessions docdex.SessionService) *index.Indexer {
	return &index.Indexer{
		Registry:  index.NewRegistry(),
		Tracker:   index.NewTracker(),
		Processor: processor,
		Sessions:  sessions,
		NewEngine: func() (docdex.CrawlEngine, error) { return engine, nil },
	}
}

func waitTerminal(t *testing.T, ix *index.Indexer, id string) docdex.StatusRecord {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec, err := ix.Wait(ctx, id, time.Millisecond)
	require.NoError(t, err)
	return rec
}

func TestIndexer_SuccessfulRun(t *testing.T) {
	t.Parallel()

	engine := stubCrawl([]docdex.CrawlResult{
		{URL: "https://docs.example.com/a", Path: "/a", Content: "aa"},
		{URL: "https://docs.example.com/b", Path: "/b", Content: "bb"},
	}, nil)
	engine.StatsFn = func() docdex.CrawlStats { return docdex.CrawlStats{PagesVisited: 2} }

	processor := &mock.DocumentProcessor{
		ProcessFn: func(ctx context.Context, result *docdex.CrawlResult) (int, error) {
			return 3, nil
		},
	}

	ix := newIndexer(engine, processor, nil)
	id, err := ix.Index(context.Background(), "https://docs.example.com", "")
	require.NoError(t, err)

	rec := waitTerminal(t, ix, id)
	assert.Equal(t, docdex.StatusComplete, rec.Status)
	assert.Equal(t, 1.0, rec.Progress)
	assert.Equal(t, 2, rec.PagesProcessed)
	assert.Equal(t, 6, rec.ChunksCreated)
	assert.Equal(t, 2, rec.PagesFound)
}

func TestIndexer_PageFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	engine := stubCrawl([]docdex.CrawlResult{
		{URL: "https://docs.example.com/a", Content: "aa"},
		{URL: "https://docs.example.com/b", Content: "bb"},
	}, nil)

	processor := &mock.DocumentProcessor{
		ProcessFn: func(ctx context.Context, result *docdex.CrawlResult) (int, error) {
			if result.URL == "https://docs.example.com/a" {
				return 0, docdex.Errorf(docdex.EINTERNAL, "conversion failed")
			}
			return 2, nil
		},
	}

	ix := newIndexer(engine, processor, nil)
	id, err := ix.Index(context.Background(), "https://docs.example.com", "")
	require.NoError(t, err)

	rec := waitTerminal(t, ix, id)
	assert.Equal(t, docdex.StatusComplete, rec.Status)
	assert.Equal(t, 1, rec.PagesProcessed)
	assert.Equal(t, 2, rec.ChunksCreated)
}

func TestIndexer_NoContentFails(t *testing.T) {
	t.Parallel()

	engine := stubCrawl(nil, nil)
	processor := &mock.DocumentProcessor{
		ProcessFn: func(ctx context.Context, result *docdex.CrawlResult) (int, error) {
			return 0, nil
		},
	}

	ix := newIndexer(engine, processor, nil)
	id, err := ix.Index(context.Background(), "https://docs.example.com", "")
	require.NoError(t, err)

	rec := waitTerminal(t, ix, id)
	assert.Equal(t, docdex.StatusFailed, rec.Status)
	assert.Equal(t, "no content extracted", rec.ErrorMessage)
}

func TestIndexer_CrawlErrorFails(t *testing.T) {
	t.Parallel()

	engine := stubCrawl(nil, docdex.Errorf(docdex.EINTERNAL, "browser crashed"))
	processor := &mock.DocumentProcessor{
		ProcessFn: func(ctx context.Context, result *docdex.CrawlResult) (int, error) { return 1, nil },
	}

	ix := newIndexer(engine, processor, nil)
	id, err := ix.Index(context.Background(), "https://docs.example.com", "")
	require.NoError(t, err)

	rec := waitTerminal(t, ix, id)
	assert.Equal(t, docdex.StatusFailed, rec.Status)
	assert.Equal(t, "browser crashed", rec.ErrorMessage)
}

func TestIndexer_CancellationIsNotAFailure(t *testing.T) {
	t.Parallel()

	engine := stubCrawl(nil, docdex.Errorf(docdex.ECANCELED, "crawl aborted"))
	processor := &mock.DocumentProcessor{
		ProcessFn: func(ctx context.Context, result *docdex.CrawlResult) (int, error) { return 1, nil },
	}

	ix := newIndexer(engine, processor, nil)
	id, err := ix.Index(context.Background(), "https://docs.example.com", "")
	require.NoError(t, err)

	rec := waitTerminal(t, ix, id)
	assert.Equal(t, docdex.StatusCancelled, rec.Status)
	assert.Empty(t, rec.ErrorMessage)
}

func TestIndexer_ExpiredSessionClearsAndAdvisesReauth(t *testing.T) {
	t.Parallel()

	var cleared []string
	sessions := &mock.SessionService{
		LoadSessionFn: func(url string) (*docdex.StorageState, error) {
			return &docdex.StorageState{Cookies: []docdex.Cookie{{Name: "sid", Value: "x", Domain: "example.com"}}}, nil
		},
		ClearSessionFn: func(url string) error {
			cleared = append(cleared, url)
			return nil
		},
	}

	var gotSession *docdex.StorageState
	engine := stubCrawl(nil, docdex.Errorf(docdex.EEXPIRED, "session expired"))
	engine.SetSessionFn = func(state *docdex.StorageState) { gotSession = state }

	ix := newIndexer(engine, &mock.DocumentProcessor{
		ProcessFn: func(ctx context.Context, result *docdex.CrawlResult) (int, error) { return 1, nil },
	}, sessions)

	id, err := ix.Index(context.Background(), "https://docs.example.com", "")
	require.NoError(t, err)

	rec := waitTerminal(t, ix, id)
	assert.Equal(t, docdex.StatusFailed, rec.Status)
	assert.Contains(t, rec.ErrorMessage, "session expired")
	assert.Contains(t, rec.ErrorMessage, "docdex login")
	assert.NotNil(t, gotSession)
	assert.Equal(t, []string{"https://docs.example.com"}, cleared)
}

func TestIndexer_ExpiryWithoutStoredSessionKeepsNothingToClear(t *testing.T) {
	t.Parallel()

	clearCalled := false
	sessions := &mock.SessionService{
		LoadSessionFn:  func(url string) (*docdex.StorageState, error) { return nil, nil },
		ClearSessionFn: func(url string) error { clearCalled = true; return nil },
	}

	engine := stubCrawl(nil, docdex.Errorf(docdex.EEXPIRED, "login required"))

	ix := newIndexer(engine, &mock.DocumentProcessor{
		ProcessFn: func(ctx context.Context, result *docdex.CrawlResult) (int, error) { return 1, nil },
	}, sessions)

	id, err := ix.Index(context.Background(), "https://docs.example.com", "")
	require.NoError(t, err)

	rec := waitTerminal(t, ix, id)
	assert.Equal(t, docdex.StatusFailed, rec.Status)
	assert.False(t, clearCalled)
}

func TestIndexer_InvalidURLRejected(t *testing.T) {
	t.Parallel()

	ix := newIndexer(stubCrawl(nil, nil), &mock.DocumentProcessor{}, nil)
	_, err := ix.Index(context.Background(), "not-a-url", "")
	require.Error(t, err)
	assert.Equal(t, docdex.EINVALID, docdex.ErrorCode(err))
}

func TestIndexer_PathPrefixReachesEngine(t *testing.T) {
	t.Parallel()

	var gotPrefix string
	engine := stubCrawl(nil, docdex.Errorf(docdex.ECANCELED, "aborted"))
	engine.SetPathPrefixFn = func(prefix string) { gotPrefix = prefix }

	ix := newIndexer(engine, &mock.DocumentProcessor{
		ProcessFn: func(ctx context.Context, result *docdex.CrawlResult) (int, error) { return 1, nil },
	}, nil)

	id, err := ix.Index(context.Background(), "https://docs.example.com/v2/intro", "/v2")
	require.NoError(t, err)
	waitTerminal(t, ix, id)

	assert.Equal(t, "/v2", gotPrefix)
}

func TestIndexer_EngineConstructionFailureFails(t *testing.T) {
	t.Parallel()

	ix := &index.Indexer{
		Registry:  index.NewRegistry(),
		Tracker:   index.NewTracker(),
		Processor: &mock.DocumentProcessor{},
		NewEngine: func() (docdex.CrawlEngine, error) {
			return nil, docdex.Errorf(docdex.EINTERNAL, "no browser available")
		},
	}

	id, err := ix.Index(context.Background(), "https://docs.example.com", "")
	require.NoError(t, err)

	rec := waitTerminal(t, ix, id)
	assert.Equal(t, docdex.StatusFailed, rec.Status)
	assert.Equal(t, "no browser available", rec.ErrorMessage)
}

func TestIndexer_WaitUnknownOperation(t *testing.T) {
	t.Parallel()

	ix := newIndexer(stubCrawl(nil, nil), &mock.DocumentProcessor{}, nil)
	_, err := ix.Wait(context.Background(), "missing", time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, docdex.ENOTFOUND, docdex.ErrorCode(err))
}
