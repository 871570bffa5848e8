package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docdex"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ docdex.DocumentService = (*DocumentService)(nil)

// DocumentService implements docdex.DocumentService using SQLite.
type DocumentService struct {
	db *DB
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(db *DB) *DocumentService {
	return &DocumentService{db: db}
}

// UpsertDocumentByURL creates or replaces the document for its URL.
// On replace the existing row's id is kept so chunks stay attached
// until the processor rewrites them.
func (s *DocumentService) UpsertDocumentByURL(ctx context.Context, doc *docdex.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.IndexedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, url, title, content, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			content_hash = excluded.content_hash,
			indexed_at = excluded.indexed_at
		RETURNING id
	`, doc.ID, doc.URL, doc.Title, doc.Content, doc.ContentHash,
		doc.IndexedAt.Format(time.RFC3339)).Scan(&doc.ID)

	return classifyErr(err)
}

// FindDocumentByURL retrieves a document by URL.
func (s *DocumentService) FindDocumentByURL(ctx context.Context, docURL string) (*docdex.Document, error) {
	var doc docdex.Document
	var indexedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, url, title, content, content_hash, indexed_at
		FROM documents
		WHERE url = ?
	`, docURL).Scan(&doc.ID, &doc.URL, &doc.Title, &doc.Content, &doc.ContentHash, &indexedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, docdex.Errorf(docdex.ENOTFOUND, "document not found")
	}
	if err != nil {
		return nil, err
	}

	doc.IndexedAt, err = time.Parse(time.RFC3339, indexedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse indexed_at: %w", err)
	}

	return &doc, nil
}

// DeleteDocumentsByHost removes all documents whose URL has the host,
// along with their chunks and FTS rows.
func (s *DocumentService) DeleteDocumentsByHost(ctx context.Context, host string) error {
	host = strings.ToLower(host)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyErr(err)
	}
	defer tx.Rollback()

	// Host matching needs URL parsing, so collect ids first. The LIKE
	// narrows the scan; the parse decides.
	rows, err := tx.QueryContext(ctx, `SELECT id, url FROM documents WHERE url LIKE '%' || ? || '%'`, host)
	if err != nil {
		return classifyErr(err)
	}
	var ids []string
	for rows.Next() {
		var id, docURL string
		if err := rows.Scan(&id, &docURL); err != nil {
			rows.Close()
			return err
		}
		if u, err := url.Parse(docURL); err == nil && strings.ToLower(u.Hostname()) == host {
			ids = append(ids, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)`, id); err != nil {
			return classifyErr(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
			return classifyErr(err)
		}
	}

	return classifyErr(tx.Commit())
}
