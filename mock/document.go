package mock

import (
	"context"

	"github.com/fwojciec/docdex"
)

var _ docdex.DocumentService = (*DocumentService)(nil)

// DocumentService is a mock implementation of docdex.DocumentService.
type DocumentService struct {
	UpsertDocumentByURLFn   func(ctx context.Context, doc *docdex.Document) error
	FindDocumentByURLFn     func(ctx context.Context, url string) (*docdex.Document, error)
	DeleteDocumentsByHostFn func(ctx context.Context, host string) error
}

func (s *DocumentService) UpsertDocumentByURL(ctx context.Context, doc *docdex.Document) error {
	return s.UpsertDocumentByURLFn(ctx, doc)
}

func (s *DocumentService) FindDocumentByURL(ctx context.Context, url string) (*docdex.Document, error) {
	return s.FindDocumentByURLFn(ctx, url)
}

func (s *DocumentService) DeleteDocumentsByHost(ctx context.Context, host string) error {
	return s.DeleteDocumentsByHostFn(ctx, host)
}

var _ docdex.ChunkService = (*ChunkService)(nil)

// ChunkService is a mock implementation of docdex.ChunkService.
type ChunkService struct {
	ReplaceChunksFn func(ctx context.Context, documentID string, chunks []*docdex.Chunk) error
}

func (s *ChunkService) ReplaceChunks(ctx context.Context, documentID string, chunks []*docdex.Chunk) error {
	return s.ReplaceChunksFn(ctx, documentID, chunks)
}

var _ docdex.SearchService = (*SearchService)(nil)

// SearchService is a mock implementation of docdex.SearchService.
type SearchService struct {
	SearchFn func(ctx context.Context, query string, limit int) ([]docdex.SearchResult, error)
}

func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]docdex.SearchResult, error) {
	return s.SearchFn(ctx, query, limit)
}

var _ docdex.DocumentProcessor = (*DocumentProcessor)(nil)

// DocumentProcessor is a mock implementation of docdex.DocumentProcessor.
type DocumentProcessor struct {
	ProcessFn func(ctx context.Context, result *docdex.CrawlResult) (int, error)
}

func (p *DocumentProcessor) Process(ctx context.Context, result *docdex.CrawlResult) (int, error) {
	return p.ProcessFn(ctx, result)
}
