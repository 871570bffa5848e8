package docdex

import (
	"context"
	"time"
)

// Document represents an indexed documentation page.
type Document struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"` // Markdown
	ContentHash string    `json:"contentHash"`
	IndexedAt   time.Time `json:"indexedAt"`
}

// Validate returns an error if the document contains invalid fields.
func (d *Document) Validate() error {
	if d.URL == "" {
		return Errorf(EINVALID, "document URL required")
	}
	if d.Content == "" {
		return Errorf(EINVALID, "document content required")
	}
	return nil
}

// DocumentService persists documents keyed by URL. Transient commit
// conflicts are reported as ECONFLICT and are retry-worthy; all other
// failures are fatal to the write.
type DocumentService interface {
	// UpsertDocumentByURL creates or replaces the document for its URL.
	UpsertDocumentByURL(ctx context.Context, doc *Document) error

	// FindDocumentByURL retrieves a document by URL.
	// Returns ENOTFOUND if no document exists.
	FindDocumentByURL(ctx context.Context, url string) (*Document, error)

	// DeleteDocumentsByHost removes all documents whose URL has the host.
	DeleteDocumentsByHost(ctx context.Context, host string) error
}

// Chunk is a section of a document sized for embedding and retrieval.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Position   int       `json:"position"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// ChunkService persists chunks.
type ChunkService interface {
	// ReplaceChunks atomically replaces all chunks for a document.
	ReplaceChunks(ctx context.Context, documentID string, chunks []*Chunk) error
}

// SearchResult is one retrieval match.
type SearchResult struct {
	Chunk *Chunk  `json:"chunk"`
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// SearchService provides hybrid (lexical plus vector) retrieval over
// indexed chunks.
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// DocumentProcessor consumes crawl results and turns them into stored,
// chunked, embedded content. It returns the number of chunks created.
type DocumentProcessor interface {
	Process(ctx context.Context, result *CrawlResult) (chunksCreated int, err error)
}
