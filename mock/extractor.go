package mock

import (
	"context"

	"github.com/fwojciec/docdex"
)

var _ docdex.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of docdex.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*docdex.ExtractResult, error)
	NameFn    func() string
}

func (e *Extractor) Extract(html string) (*docdex.ExtractResult, error) {
	return e.ExtractFn(html)
}

func (e *Extractor) Name() string {
	if e.NameFn == nil {
		return "mock"
	}
	return e.NameFn()
}

var _ docdex.SiteRule = (*SiteRule)(nil)

// SiteRule is a mock implementation of docdex.SiteRule.
type SiteRule struct {
	DetectFn        func(html string) bool
	ExtractorFn     func() docdex.Extractor
	LinkSelectorsFn func() []string
	PrepareFn       func(ctx context.Context, page docdex.BrowserPage) error
}

func (r *SiteRule) Detect(html string) bool {
	return r.DetectFn(html)
}

func (r *SiteRule) Extractor() docdex.Extractor {
	return r.ExtractorFn()
}

func (r *SiteRule) LinkSelectors() []string {
	if r.LinkSelectorsFn == nil {
		return nil
	}
	return r.LinkSelectorsFn()
}

func (r *SiteRule) Prepare(ctx context.Context, page docdex.BrowserPage) error {
	if r.PrepareFn == nil {
		return nil
	}
	return r.PrepareFn(ctx, page)
}

var _ docdex.Converter = (*Converter)(nil)

// Converter is a mock implementation of docdex.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

var _ docdex.Embedder = (*Embedder)(nil)

// Embedder is a mock implementation of docdex.Embedder.
type Embedder struct {
	EmbedFn func(ctx context.Context, texts []string) ([][]float32, error)
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedFn(ctx, texts)
}
