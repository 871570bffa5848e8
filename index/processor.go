package index

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/crawl"
	"golang.org/x/sync/errgroup"
)

// Processor defaults.
const (
	// DefaultMaxChunkChars bounds a chunk's size for embedding.
	DefaultMaxChunkChars = 4000
	// embedBatchSize is how many chunks go into one embedding call.
	embedBatchSize = 16
	// embedConcurrency bounds parallel embedding calls per page.
	embedConcurrency = 4
)

// Compile-time interface verification.
var _ docdex.DocumentProcessor = (*Processor)(nil)

// Processor is the default document processing pipeline: it converts a
// crawl result to Markdown, splits it into header-aware chunks, embeds
// them, and upserts document and chunks keyed by URL. Transient storage
// conflicts are retried with capped exponential backoff.
type Processor struct {
	Converter docdex.Converter
	Documents docdex.DocumentService
	Chunks    docdex.ChunkService
	Embedder  docdex.Embedder // optional; chunks are stored unembedded without it

	MaxChunkChars  int
	ConflictDelays []time.Duration
}

// Process stores one crawl result and returns the number of chunks
// created. A document whose content hash is unchanged is skipped.
func (p *Processor) Process(ctx context.Context, result *docdex.CrawlResult) (int, error) {
	markdown, err := p.Converter.Convert(result.Content)
	if err != nil {
		return 0, err
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return 0, docdex.Errorf(docdex.EINVALID, "no content extracted from %s", result.URL)
	}

	hash := contentHash(markdown)
	if existing, err := p.Documents.FindDocumentByURL(ctx, result.URL); err == nil && existing.ContentHash == hash {
		return 0, nil
	}

	doc := &docdex.Document{
		URL:         result.URL,
		Title:       result.Title,
		Content:     markdown,
		ContentHash: hash,
	}
	err = crawl.RetryConflict(ctx, func(ctx context.Context) error {
		return p.Documents.UpsertDocumentByURL(ctx, doc)
	}, p.ConflictDelays)
	if err != nil {
		return 0, err
	}

	chunks := p.split(doc, markdown)
	if p.Embedder != nil {
		if err := p.embed(ctx, chunks); err != nil {
			return 0, err
		}
	}

	err = crawl.RetryConflict(ctx, func(ctx context.Context) error {
		return p.Chunks.ReplaceChunks(ctx, doc.ID, chunks)
	}, p.ConflictDelays)
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// split divides markdown into chunks, preferring header boundaries and
// falling back to paragraph breaks when a section exceeds the limit.
func (p *Processor) split(doc *docdex.Document, markdown string) []*docdex.Chunk {
	limit := p.MaxChunkChars
	if limit <= 0 {
		limit = DefaultMaxChunkChars
	}

	var sections []string
	var current strings.Builder
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "#") && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}

	var chunks []*docdex.Chunk
	position := 0
	emit := func(content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		chunks = append(chunks, &docdex.Chunk{
			DocumentID: doc.ID,
			Position:   position,
			Content:    content,
		})
		position++
	}

	for _, section := range sections {
		if len(section) <= limit {
			emit(section)
			continue
		}
		// Oversized section: break on paragraph boundaries.
		var part strings.Builder
		for _, para := range strings.Split(section, "\n\n") {
			if part.Len() > 0 && part.Len()+len(para) > limit {
				emit(part.String())
				part.Reset()
			}
			part.WriteString(para)
			part.WriteString("\n\n")
		}
		emit(part.String())
	}
	return chunks
}

// embed fills in chunk embeddings, batching calls and bounding
// concurrency per page.
func (p *Processor) embed(ctx context.Context, chunks []*docdex.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		batch := chunks[start:min(start+embedBatchSize, len(chunks))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}
			embeddings, err := p.Embedder.Embed(gctx, texts)
			if err != nil {
				return err
			}
			if len(embeddings) != len(batch) {
				return docdex.Errorf(docdex.EINTERNAL, "embedder returned %d embeddings for %d texts", len(embeddings), len(batch))
			}
			for i, c := range batch {
				c.Embedding = embeddings[i]
			}
			return nil
		})
	}
	return g.Wait()
}

// contentHash computes an xxHash of the content as a hex string.
func contentHash(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}
