package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docdex"
)

var _ docdex.Extractor = (*SelectorExtractor)(nil)

// SelectorExtractor extracts main content using framework-specific CSS
// selectors. Content selectors are tried in order and the first match
// wins; drop selectors are removed from the matched subtree before it
// is returned.
type SelectorExtractor struct {
	name             string
	contentSelectors []string
	dropSelectors    []string
}

// NewSelectorExtractor creates a SelectorExtractor.
func NewSelectorExtractor(name string, contentSelectors, dropSelectors []string) *SelectorExtractor {
	return &SelectorExtractor{
		name:             name,
		contentSelectors: contentSelectors,
		dropSelectors:    dropSelectors,
	}
}

// Name returns the extractor's identifier.
func (e *SelectorExtractor) Name() string {
	return e.name
}

// Extract processes raw HTML and returns the main content.
func (e *SelectorExtractor) Extract(html string) (*docdex.ExtractResult, error) {
	if strings.TrimSpace(html) == "" {
		return nil, docdex.Errorf(docdex.EINVALID, "empty HTML input")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docdex.Errorf(docdex.EINVALID, "failed to parse HTML: %v", err)
	}

	var content *goquery.Selection
	for _, selector := range e.contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			content = sel
			break
		}
	}
	if content == nil {
		return nil, docdex.Errorf(docdex.ENOTFOUND, "no content matched %q selectors", e.name)
	}

	for _, selector := range e.dropSelectors {
		content.Find(selector).Remove()
	}

	contentHTML, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, err
	}

	return &docdex.ExtractResult{
		Title:       extractTitle(doc),
		ContentHTML: contentHTML,
	}, nil
}

// extractTitle prefers og:title over the document title, and trims the
// common " | Site Name" suffix from the latter.
func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if idx := strings.Index(title, " | "); idx > 0 {
		title = title[:idx]
	}
	return title
}

// hasSelector checks if the document contains at least one element
// matching the selector.
func hasSelector(doc *goquery.Document, selector string) bool {
	return doc.Find(selector).Length() > 0
}

// parseDoc parses HTML, returning nil on malformed input so Detect
// implementations can fail closed.
func parseDoc(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return doc
}

// metaGenerator returns the lowercased content of the meta generator
// tag, or "" when absent.
func metaGenerator(doc *goquery.Document) string {
	generator := ""
	doc.Find(`meta[name="generator"]`).Each(func(_ int, s *goquery.Selection) {
		if content, exists := s.Attr("content"); exists {
			generator = strings.ToLower(content)
		}
	})
	return generator
}
