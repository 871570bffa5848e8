package goquery

import "github.com/fwojciec/docdex"

// DefaultRules returns the standard rule table in evaluation order.
// Specific framework rules come first; the generic catch-all, built on
// the given fallback extractor, is always last.
func DefaultRules(fallback docdex.Extractor) []docdex.SiteRule {
	return []docdex.SiteRule{
		NewDocusaurusRule(),
		NewMkDocsRule(),
		NewGitBookRule(),
		NewGenericRule(fallback),
	}
}
