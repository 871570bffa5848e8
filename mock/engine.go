package mock

import (
	"context"

	"github.com/fwojciec/docdex"
)

var _ docdex.CrawlEngine = (*CrawlEngine)(nil)

// CrawlEngine is a mock implementation of docdex.CrawlEngine.
type CrawlEngine struct {
	CrawlFn         func(ctx context.Context, startURL string) (<-chan docdex.CrawlResult, <-chan error)
	AbortFn         func()
	SetPathPrefixFn func(prefix string)
	SetSessionFn    func(state *docdex.StorageState)
	StatsFn         func() docdex.CrawlStats
}

func (e *CrawlEngine) Crawl(ctx context.Context, startURL string) (<-chan docdex.CrawlResult, <-chan error) {
	return e.CrawlFn(ctx, startURL)
}

func (e *CrawlEngine) Abort() {
	if e.AbortFn != nil {
		e.AbortFn()
	}
}

func (e *CrawlEngine) SetPathPrefix(prefix string) {
	if e.SetPathPrefixFn != nil {
		e.SetPathPrefixFn(prefix)
	}
}

func (e *CrawlEngine) SetSession(state *docdex.StorageState) {
	if e.SetSessionFn != nil {
		e.SetSessionFn(state)
	}
}

func (e *CrawlEngine) Stats() docdex.CrawlStats {
	if e.StatsFn == nil {
		return docdex.CrawlStats{}
	}
	return e.StatsFn()
}

var _ docdex.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of docdex.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL)
}
