package crawl_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontier_HostnameContainment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		startURL  string
		candidate string
		want      bool
	}{
		{
			name:      "same host is allowed",
			startURL:  "https://docs.example.com/docs/intro",
			candidate: "https://docs.example.com/docs/advanced",
			want:      true,
		},
		{
			name:      "strict subdomain is allowed",
			startURL:  "https://example.com/",
			candidate: "https://docs.example.com/guide",
			want:      true,
		},
		{
			name:      "sibling subdomain is rejected",
			startURL:  "https://docs.example.com/",
			candidate: "https://other.example.com/page",
			want:      false,
		},
		{
			name:      "parent domain is rejected",
			startURL:  "https://docs.example.com/",
			candidate: "https://example.com/page",
			want:      false,
		},
		{
			name:      "unrelated host is rejected",
			startURL:  "https://docs.example.com/",
			candidate: "https://evil.com/docs.example.com",
			want:      false,
		},
		{
			name:      "suffix without dot boundary is rejected",
			startURL:  "https://example.com/",
			candidate: "https://notexample.com/page",
			want:      false,
		},
		{
			name:      "host comparison is case-insensitive",
			startURL:  "https://Docs.Example.com/",
			candidate: "https://DOCS.EXAMPLE.COM/page",
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := crawl.NewFrontier(nil)
			require.NoError(t, f.Initialize(tt.startURL, ""))

			_, ok := f.FilterAndTransform(tt.candidate)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestFrontier_PathPrefixSegmentBoundary(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(nil)
	require.NoError(t, f.Initialize("https://docs.example.com/docs", "/docs"))

	accepted := []string{
		"https://docs.example.com/docs",
		"https://docs.example.com/docs/intro",
		"https://docs.example.com/docs/api/v2",
	}
	for _, u := range accepted {
		_, ok := f.FilterAndTransform(u)
		assert.True(t, ok, u)
	}

	// /documentation shares the literal prefix but not the segment.
	_, ok := f.FilterAndTransform("https://docs.example.com/documentation")
	assert.False(t, ok)
	assert.Equal(t, int64(1), f.RejectedByPathPrefix())
	assert.Equal(t, int64(0), f.RejectedByHostname())
}

func TestFrontier_RejectionCounters(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(nil)
	require.NoError(t, f.Initialize("https://docs.example.com/", "/v2"))

	f.FilterAndTransform("https://other.example.com/v2/page")
	f.FilterAndTransform("https://example.com/v2/page")
	f.FilterAndTransform("https://docs.example.com/v1/page")

	assert.Equal(t, int64(2), f.RejectedByHostname())
	assert.Equal(t, int64(1), f.RejectedByPathPrefix())
}

func TestFrontier_FragmentDedup(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(nil)
	require.NoError(t, f.Initialize("https://docs.example.com/", ""))

	assert.True(t, f.Push("https://docs.example.com/guide"))
	assert.False(t, f.Push("https://docs.example.com/guide#section-1"))
	assert.False(t, f.Push("https://docs.example.com/guide#section-2"))

	// Different query is a different page.
	assert.True(t, f.Push("https://docs.example.com/guide?page=2"))

	assert.Equal(t, 3, f.Len()) // seed + guide + guide?page=2
}

func TestFrontier_PopDiscoveryOrder(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(nil)
	require.NoError(t, f.Initialize("https://docs.example.com/start", ""))

	f.Push("https://docs.example.com/a")
	f.Push("https://docs.example.com/b")

	var got []string
	for {
		e, ok := f.Pop()
		if !ok {
			break
		}
		got = append(got, e.URL)
	}
	assert.Equal(t, []string{
		"https://docs.example.com/start",
		"https://docs.example.com/a",
		"https://docs.example.com/b",
	}, got)
}

// recordingSink captures every Append call for batch-size assertions.
type recordingSink struct {
	mu      sync.Mutex
	batches [][]docdex.CrawlResult
	err     error
}

func (s *recordingSink) Append(_ context.Context, results []docdex.CrawlResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]docdex.CrawlResult, len(results))
	copy(batch, results)
	s.batches = append(s.batches, batch)
	return s.err
}

func TestFrontier_ProcessBatchFlushesInSubChunks(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	f := crawl.NewFrontier(sink)
	require.NoError(t, f.Initialize("https://docs.example.com/", ""))

	for i := 0; i < 22; i++ {
		f.AddResult(docdex.CrawlResult{URL: fmt.Sprintf("https://docs.example.com/p%d", i)})
	}
	assert.True(t, f.HasEnoughResults())

	flushed, err := f.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, flushed, 22)

	// 22 results flush as 5+5+5+5+2.
	require.Len(t, sink.batches, 5)
	for i := 0; i < 4; i++ {
		assert.Len(t, sink.batches[i], 5)
	}
	assert.Len(t, sink.batches[4], 2)

	// Buffer is cleared after flushing.
	assert.False(t, f.HasEnoughResults())
	more, err := f.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, more)
}

func TestFrontier_BatchThreshold(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(nil)
	require.NoError(t, f.Initialize("https://docs.example.com/", ""))

	for i := 0; i < 19; i++ {
		f.AddResult(docdex.CrawlResult{URL: fmt.Sprintf("https://docs.example.com/p%d", i)})
	}
	assert.False(t, f.HasEnoughResults())

	f.AddResult(docdex.CrawlResult{URL: "https://docs.example.com/p19"})
	assert.True(t, f.HasEnoughResults())
}

func TestFrontier_InitializeRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(nil)
	err := f.Initialize("not-a-url", "")
	require.Error(t, err)
	assert.Equal(t, docdex.EINVALID, docdex.ErrorCode(err))
}

func TestFrontier_CleanupDropsQueue(t *testing.T) {
	t.Parallel()

	f := crawl.NewFrontier(nil)
	require.NoError(t, f.Initialize("https://docs.example.com/", ""))
	f.Push("https://docs.example.com/a")

	f.Cleanup()
	assert.Equal(t, 0, f.Len())
	_, ok := f.Pop()
	assert.False(t, ok)
}
