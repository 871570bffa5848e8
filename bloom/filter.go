// Package bloom provides probabilistic seen-set tracking for crawl
// frontiers using Bloom filters.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// SeenSet tracks frontier keys with a Bloom filter. False positives are
// possible (a never-pushed key may report seen); false negatives are not,
// so a crawl never revisits a page.
type SeenSet struct {
	filter *bloom.BloomFilter
	n      uint
	fpRate float64
}

// NewSeenSet creates a SeenSet sized for n expected keys with the given
// false positive rate.
func NewSeenSet(n uint, fpRate float64) *SeenSet {
	return &SeenSet{
		filter: bloom.NewWithEstimates(n, fpRate),
		n:      n,
		fpRate: fpRate,
	}
}

// Add records a key as seen.
func (s *SeenSet) Add(key string) {
	s.filter.AddString(key)
}

// Seen reports whether the key might have been added.
func (s *SeenSet) Seen(key string) bool {
	return s.filter.TestString(key)
}

// Reset discards all recorded keys, keeping the original sizing.
// Used when a frontier is re-initialized for a new crawl.
func (s *SeenSet) Reset() {
	s.filter = bloom.NewWithEstimates(s.n, s.fpRate)
}

// EstimatedCount returns the approximate number of recorded keys.
func (s *SeenSet) EstimatedCount() uint {
	return uint(s.filter.ApproximatedSize())
}
