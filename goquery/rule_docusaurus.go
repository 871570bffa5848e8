package goquery

import (
	"context"
	"strings"
	"time"

	"github.com/fwojciec/docdex"
)

var _ docdex.SiteRule = (*DocusaurusRule)(nil)

// DocusaurusRule handles Docusaurus documentation sites.
// Validated against Docusaurus v2.x and v3.x.
type DocusaurusRule struct {
	extractor *SelectorExtractor
}

// NewDocusaurusRule creates a new DocusaurusRule.
func NewDocusaurusRule() *DocusaurusRule {
	return &DocusaurusRule{
		extractor: NewSelectorExtractor("docusaurus",
			[]string{".theme-doc-markdown", "article .markdown", "article", "main"},
			[]string{".theme-doc-toc-mobile", ".theme-doc-breadcrumbs", ".theme-edit-this-page", "nav.pagination-nav", ".hash-link"},
		),
	}
}

// Detect reports whether the page looks like a Docusaurus site.
// __docusaurus_skipToContent_fallback is highly specific.
func (r *DocusaurusRule) Detect(html string) bool {
	doc := parseDoc(html)
	if doc == nil {
		return false
	}
	if strings.Contains(metaGenerator(doc), "docusaurus") {
		return true
	}
	return hasSelector(doc, "#__docusaurus_skipToContent_fallback") ||
		hasSelector(doc, ".theme-doc-sidebar-container") ||
		(hasSelector(doc, "[data-rh]") && hasSelector(doc, "[data-theme]"))
}

// Extractor returns the Docusaurus content extractor.
func (r *DocusaurusRule) Extractor() docdex.Extractor {
	return r.extractor
}

// LinkSelectors targets Docusaurus-specific navigation elements.
func (r *DocusaurusRule) LinkSelectors() []string {
	return []string{
		".table-of-contents a[href]",
		".theme-doc-sidebar-container a[href]",
		"nav.navbar a[href]",
		"article a[href]",
		"main a[href]",
		"nav.pagination-nav a[href]",
	}
}

// Prepare expands collapsed sidebar categories so their links are
// present in the DOM when the page HTML is read.
func (r *DocusaurusRule) Prepare(ctx context.Context, page docdex.BrowserPage) error {
	expandCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return page.Eval(expandCtx, `() => {
		document.querySelectorAll('.menu__list-item--collapsed .menu__link--sublist, .menu__list-item--collapsed .menu__caret')
			.forEach(el => el.click());
	}`)
}
