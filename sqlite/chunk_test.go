package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDocument(t *testing.T, db *sqlite.DB, url string) *docdex.Document {
	t.Helper()
	svc := sqlite.NewDocumentService(db)
	doc := &docdex.Document{URL: url, Title: "Doc", Content: "# Doc"}
	require.NoError(t, svc.UpsertDocumentByURL(context.Background(), doc))
	return doc
}

func TestChunkService_ReplaceChunks(t *testing.T) {
	t.Parallel()

	t.Run("assigns ids and positions in order", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		doc := createTestDocument(t, db, "https://docs.example.com/a")
		svc := sqlite.NewChunkService(db)
		ctx := context.Background()

		chunks := []*docdex.Chunk{
			{Content: "first", Embedding: []float32{0.1, 0.2}},
			{Content: "second"},
			{Content: "third"},
		}
		require.NoError(t, svc.ReplaceChunks(ctx, doc.ID, chunks))

		for i, c := range chunks {
			assert.NotEmpty(t, c.ID)
			assert.Equal(t, doc.ID, c.DocumentID)
			assert.Equal(t, i, c.Position)
		}

		var count int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE document_id = ?", doc.ID).Scan(&count))
		assert.Equal(t, 3, count)
	})

	t.Run("replacement removes prior chunks and FTS rows", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		doc := createTestDocument(t, db, "https://docs.example.com/a")
		svc := sqlite.NewChunkService(db)
		ctx := context.Background()

		require.NoError(t, svc.ReplaceChunks(ctx, doc.ID, []*docdex.Chunk{
			{Content: "old one"}, {Content: "old two"},
		}))
		require.NoError(t, svc.ReplaceChunks(ctx, doc.ID, []*docdex.Chunk{
			{Content: "new"},
		}))

		var chunkCount, ftsCount int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&chunkCount))
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks_fts").Scan(&ftsCount))
		assert.Equal(t, 1, chunkCount)
		assert.Equal(t, 1, ftsCount)
	})

	t.Run("empty document id is invalid", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewChunkService(db)

		err := svc.ReplaceChunks(context.Background(), "", nil)
		require.Error(t, err)
		assert.Equal(t, docdex.EINVALID, docdex.ErrorCode(err))
	})
}
