package docdex

import "context"

// ExtractResult holds the extracted content from an HTML page.
type ExtractResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// ContentHTML is the main content as clean HTML.
	// Boilerplate (nav, footer, sidebar, ads) has been removed.
	ContentHTML string
}

// Extractor extracts main content from HTML pages, removing boilerplate.
type Extractor interface {
	// Extract processes raw HTML and returns the main content.
	Extract(html string) (*ExtractResult, error)

	// Name returns the extractor's identifier (e.g., "docusaurus").
	Name() string
}

// SiteRule couples site-flavor detection with an extraction strategy.
// An ordered list of rules is consulted top-to-bottom per page; the
// first rule whose Detect returns true wins. New site types are
// additions to the list, not edits to a dispatch chain.
type SiteRule interface {
	// Detect reports whether this rule applies to the page.
	Detect(html string) bool

	// Extractor returns the content extraction strategy for the rule.
	Extractor() Extractor

	// LinkSelectors returns CSS selectors used to discover same-site
	// links on the page. Empty means the default anchor selector.
	LinkSelectors() []string

	// Prepare runs against the live page before extraction, e.g. to
	// expand collapsed navigation. A nil error with no effect is the
	// common case.
	Prepare(ctx context.Context, page BrowserPage) error
}
