package goquery

import (
	"context"

	"github.com/fwojciec/docdex"
)

var _ docdex.SiteRule = (*GenericRule)(nil)

// GenericRule is the catch-all for sites no specific rule matches. It
// delegates content extraction to a boilerplate-removal extractor and
// discovers links from common structural elements.
type GenericRule struct {
	extractor docdex.Extractor
}

// NewGenericRule creates a GenericRule delegating extraction to the
// given extractor, typically trafilatura.
func NewGenericRule(extractor docdex.Extractor) *GenericRule {
	return &GenericRule{extractor: extractor}
}

// Detect always matches. The generic rule must be last in the rule
// list.
func (r *GenericRule) Detect(html string) bool {
	return true
}

// Extractor returns the delegate extractor.
func (r *GenericRule) Extractor() docdex.Extractor {
	return r.extractor
}

// LinkSelectors uses universal structural patterns that work across
// any documentation framework.
func (r *GenericRule) LinkSelectors() []string {
	return []string{
		".toc a[href]",
		".table-of-contents a[href]",
		".sidebar a[href]",
		"aside a[href]",
		"nav a[href]",
		`[role="navigation"] a[href]`,
		".menu a[href]",
		"main a[href]",
		"article a[href]",
		".content a[href]",
	}
}

// Prepare is a no-op.
func (r *GenericRule) Prepare(ctx context.Context, page docdex.BrowserPage) error {
	return nil
}
