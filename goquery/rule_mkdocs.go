package goquery

import (
	"context"
	"strings"

	"github.com/fwojciec/docdex"
)

var _ docdex.SiteRule = (*MkDocsRule)(nil)

// MkDocsRule handles MkDocs sites, including the Material theme.
// data-md-color-* attributes are unique to MkDocs Material.
type MkDocsRule struct {
	extractor *SelectorExtractor
}

// NewMkDocsRule creates a new MkDocsRule.
func NewMkDocsRule() *MkDocsRule {
	return &MkDocsRule{
		extractor: NewSelectorExtractor("mkdocs",
			[]string{".md-content article", ".md-content", "article", "main"},
			[]string{".md-source-file", ".md-feedback", ".headerlink", "nav.md-footer__inner"},
		),
	}
}

// Detect reports whether the page looks like an MkDocs site.
func (r *MkDocsRule) Detect(html string) bool {
	doc := parseDoc(html)
	if doc == nil {
		return false
	}
	if strings.Contains(metaGenerator(doc), "mkdocs") {
		return true
	}
	return hasSelector(doc, "[data-md-color-scheme]") ||
		hasSelector(doc, "[data-md-component]") ||
		hasSelector(doc, ".md-nav--primary")
}

// Extractor returns the MkDocs content extractor.
func (r *MkDocsRule) Extractor() docdex.Extractor {
	return r.extractor
}

// LinkSelectors targets MkDocs-specific navigation elements.
func (r *MkDocsRule) LinkSelectors() []string {
	return []string{
		".md-sidebar--secondary a[href]",
		"[data-md-component='toc'] a[href]",
		".md-nav--primary a[href]",
		"[data-md-component='navigation'] a[href]",
		".md-content a[href]",
		"article a[href]",
	}
}

// Prepare is a no-op: MkDocs renders its full navigation into the DOM.
func (r *MkDocsRule) Prepare(ctx context.Context, page docdex.BrowserPage) error {
	return nil
}
