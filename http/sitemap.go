// Package http provides HTTP-based implementations of docdex services.
package http

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/docdex"
)

// Ensure SitemapService implements docdex.SitemapService.
var _ docdex.SitemapService = (*SitemapService)(nil)

// maxSitemapDepth bounds sitemap-index recursion so a cyclic or
// adversarial index cannot loop forever.
const maxSitemapDepth = 5

// SitemapService discovers URLs from website sitemaps via HTTP. The
// crawl engine uses it to pre-seed the frontier before link discovery.
type SitemapService struct {
	client *http.Client
}

// NewSitemapService creates a new SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	return &SitemapService{client: client}
}

// DiscoverURLs finds all URLs from a site's sitemap, located via
// robots.txt Sitemap directives with a /sitemap.xml fallback. When
// baseURL has a non-root path, only URLs under that path are returned.
// Returns an empty slice when no sitemap exists; that is not an error.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, docdex.Errorf(docdex.EINVALID, "invalid base URL: %v", err)
	}

	pathPrefix := base.Path
	if pathPrefix == "/" {
		pathPrefix = ""
	}

	// Sitemaps live at the domain root regardless of the crawl path.
	root := *base
	root.Path = ""

	sitemapURLs, err := s.findSitemapURLs(ctx, &root)
	if err != nil {
		return nil, err
	}
	if len(sitemapURLs) == 0 {
		return []string{}, nil
	}

	seenSitemaps := make(map[string]bool)
	seenURLs := make(map[string]bool)
	var discovered []string

	for _, sitemapURL := range sitemapURLs {
		urls, err := s.walkSitemap(ctx, sitemapURL, seenSitemaps, 0)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			if seenURLs[u] {
				continue
			}
			seenURLs[u] = true
			if pathPrefix == "" || underPathPrefix(u, pathPrefix) {
				discovered = append(discovered, u)
			}
		}
	}

	if discovered == nil {
		discovered = []string{}
	}
	return discovered, nil
}

// underPathPrefix reports whether the URL's path sits under the prefix,
// respecting segment boundaries: /docs matches /docs/ and /docs/intro
// but not /documentation.
func underPathPrefix(rawURL, prefix string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(parsed.Path, prefix) ||
		parsed.Path == strings.TrimSuffix(prefix, "/")
}

// findSitemapURLs reads robots.txt Sitemap directives, falling back to
// /sitemap.xml when robots.txt has none.
func (s *SitemapService) findSitemapURLs(ctx context.Context, base *url.URL) ([]string, error) {
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"})
	if sitemaps, err := s.sitemapsFromRobots(ctx, robotsURL.String()); err == nil && len(sitemaps) > 0 {
		return sitemaps, nil
	}

	fallback := base.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()
	exists, err := s.urlExists(ctx, fallback)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	if exists {
		return []string{fallback}, nil
	}
	return nil, nil
}

// sitemapsFromRobots extracts Sitemap: directives from robots.txt.
func (s *SitemapService) sitemapsFromRobots(ctx context.Context, robotsURL string) ([]string, error) {
	body, err := s.fetch(ctx, robotsURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var sitemaps []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			continue
		}
		if u := strings.TrimSpace(line[len("sitemap:"):]); u != "" {
			sitemaps = append(sitemaps, u)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading robots.txt: %w", err)
	}
	return sitemaps, nil
}

// walkSitemap fetches and parses one sitemap document, recursing into
// sitemap indexes.
func (s *SitemapService) walkSitemap(ctx context.Context, sitemapURL string, seen map[string]bool, depth int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seen[sitemapURL] || depth > maxSitemapDepth {
		return nil, nil
	}
	seen[sitemapURL] = true

	body, err := s.fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return nil, fmt.Errorf("parsing sitemap XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty sitemap XML")
	}

	if root.Tag == "sitemapindex" {
		var all []string
		for _, child := range root.SelectElements("sitemap") {
			loc := child.SelectElement("loc")
			if loc == nil {
				continue
			}
			childURL := strings.TrimSpace(loc.Text())
			if childURL == "" {
				continue
			}
			urls, err := s.walkSitemap(ctx, childURL, seen, depth+1)
			if err != nil {
				return nil, err
			}
			all = append(all, urls...)
		}
		return all, nil
	}

	var urls []string
	for _, el := range root.SelectElements("url") {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if u := strings.TrimSpace(loc.Text()); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

// fetch GETs a URL and returns the response body.
func (s *SitemapService) fetch(ctx context.Context, targetURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, targetURL)
	}
	return resp.Body, nil
}

// urlExists checks if a URL returns 200 OK to a HEAD request.
func (s *SitemapService) urlExists(ctx context.Context, targetURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, targetURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
