package goquery

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docdex"
)

var _ docdex.SiteRule = (*GitBookRule)(nil)

// GitBookRule handles GitBook-hosted documentation.
type GitBookRule struct {
	extractor *SelectorExtractor
}

// NewGitBookRule creates a new GitBookRule.
func NewGitBookRule() *GitBookRule {
	return &GitBookRule{
		extractor: NewSelectorExtractor("gitbook",
			[]string{"main [data-testid='page.contentEditor']", "main article", "main"},
			[]string{"[data-testid='page.desktopTableOfContents']", "[data-testid='page.footer']"},
		),
	}
}

// Detect reports whether the page looks like a GitBook site.
func (r *GitBookRule) Detect(html string) bool {
	doc := parseDoc(html)
	if doc == nil {
		return false
	}
	if strings.Contains(metaGenerator(doc), "gitbook") {
		return true
	}
	return hasSelector(doc, "[data-testid='space.sidebar']") ||
		hasSelector(doc, "[data-testid='page.desktopTableOfContents']") ||
		hasGitBookClasses(doc)
}

// Extractor returns the GitBook content extractor.
func (r *GitBookRule) Extractor() docdex.Extractor {
	return r.extractor
}

// LinkSelectors targets GitBook-specific navigation elements.
func (r *GitBookRule) LinkSelectors() []string {
	return []string{
		"[data-testid='space.sidebar'] a[href]",
		"[data-testid='page.desktopTableOfContents'] a[href]",
		"main a[href]",
	}
}

// Prepare is a no-op.
func (r *GitBookRule) Prepare(ctx context.Context, page docdex.BrowserPage) error {
	return nil
}

// hasGitBookClasses checks for GitBook's distinctive class combination
// on the html element: circular-corners, theme-clean, tint. At least
// two must be present.
func hasGitBookClasses(doc *goquery.Document) bool {
	htmlClass, _ := doc.Find("html").Attr("class")
	if htmlClass == "" {
		return false
	}
	count := 0
	for _, marker := range []string{"circular-corners", "theme-clean", "tint"} {
		if strings.Contains(htmlClass, marker) {
			count++
		}
	}
	return count >= 2
}
