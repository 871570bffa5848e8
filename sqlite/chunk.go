package sqlite

import (
	"context"

	"github.com/fwojciec/docdex"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ docdex.ChunkService = (*ChunkService)(nil)

// ChunkService implements docdex.ChunkService using SQLite.
type ChunkService struct {
	db *DB
}

// NewChunkService creates a new ChunkService.
func NewChunkService(db *DB) *ChunkService {
	return &ChunkService{db: db}
}

// ReplaceChunks atomically replaces all chunks for a document, keeping
// the FTS index in step within the same transaction.
func (s *ChunkService) ReplaceChunks(ctx context.Context, documentID string, chunks []*docdex.Chunk) error {
	if documentID == "" {
		return docdex.Errorf(docdex.EINVALID, "document id required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyErr(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts WHERE chunk_id IN (SELECT id FROM chunks WHERE document_id = ?)`, documentID); err != nil {
		return classifyErr(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return classifyErr(err)
	}

	for i, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
		chunk.DocumentID = documentID
		chunk.Position = i

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, position, content, embedding)
			VALUES (?, ?, ?, ?, ?)
		`, chunk.ID, chunk.DocumentID, chunk.Position, chunk.Content, encodeEmbedding(chunk.Embedding)); err != nil {
			return classifyErr(err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks_fts (chunk_id, content) VALUES (?, ?)
		`, chunk.ID, chunk.Content); err != nil {
			return classifyErr(err)
		}
	}

	return classifyErr(tx.Commit())
}
