package crawl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoginConfidenceThreshold is the combined signal score at which a page
// is treated as a login page. The scoring is deliberately structural:
// signals are additive and fuzzy, and no single content signal is
// conclusive on its own.
const LoginConfidenceThreshold = 0.5

// loginPathPattern matches URL paths commonly used for login forms.
var loginPathPattern = regexp.MustCompile(`(?i)/(login|log-in|signin|sign-in|sign_in|auth|authorize|authenticate|session/new|sso|oauth)([/?#]|$)`)

// IsLoginURL reports whether the URL's path matches a known login path
// pattern.
func IsLoginURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return loginPathPattern.MatchString(u.Path)
}

// loginSignal is one piece of content evidence that a page is a login
// form. Weights are additive.
type loginSignal struct {
	weight float64
	probe  func(doc *goquery.Document) bool
}

var loginSignals = []loginSignal{
	// A visible password field is the strongest content signal.
	{0.4, func(doc *goquery.Document) bool {
		return doc.Find(`input[type="password"]`).Length() > 0
	}},
	// A submit control labelled "sign in" / "log in".
	{0.3, func(doc *goquery.Document) bool {
		found := false
		doc.Find(`button, input[type="submit"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.ToLower(strings.TrimSpace(s.Text()))
			if text == "" {
				text = strings.ToLower(s.AttrOr("value", ""))
			}
			if containsLoginPhrase(text) {
				found = true
				return false
			}
			return true
		})
		return found
	}},
	// Page title mentions signing in.
	{0.2, func(doc *goquery.Document) bool {
		return containsLoginPhrase(strings.ToLower(doc.Find("title").Text()))
	}},
	// "Forgot password" helper link.
	{0.2, func(doc *goquery.Document) bool {
		found := false
		doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.ToLower(s.Text())
			if strings.Contains(text, "forgot password") || strings.Contains(text, "forgot your password") || strings.Contains(text, "reset password") {
				found = true
				return false
			}
			return true
		})
		return found
	}},
	// Third-party identity buttons ("Continue with Google" etc.).
	{0.2, func(doc *goquery.Document) bool {
		body := strings.ToLower(doc.Find("body").Text())
		for _, phrase := range []string{"continue with google", "continue with github", "sign in with google", "sign in with github", "sign in with sso"} {
			if strings.Contains(body, phrase) {
				return true
			}
		}
		return false
	}},
}

// DetectLoginPage scores the likelihood that the page at pageURL is a
// login form. A URL matching a known login path is conclusive on its
// own; otherwise content signals accumulate toward the threshold.
func DetectLoginPage(pageURL, html string) (confidence float64, isLogin bool) {
	if IsLoginURL(pageURL) {
		return 1.0, true
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false
	}

	for _, sig := range loginSignals {
		if sig.probe(doc) {
			confidence += sig.weight
		}
	}
	return confidence, confidence >= LoginConfidenceThreshold
}

// containsLoginPhrase reports whether text contains a sign-in phrasing.
func containsLoginPhrase(text string) bool {
	for _, phrase := range []string{"sign in", "log in", "login", "signin"} {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
