package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentService_UpsertDocumentByURL(t *testing.T) {
	t.Parallel()

	t.Run("creates document with generated ID and timestamp", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewDocumentService(db)
		ctx := context.Background()

		doc := &docdex.Document{
			URL:     "https://docs.example.com/intro",
			Title:   "Introduction",
			Content: "# Introduction\n\nWelcome.",
		}

		require.NoError(t, svc.UpsertDocumentByURL(ctx, doc))
		assert.NotEmpty(t, doc.ID)
		assert.False(t, doc.IndexedAt.IsZero())
	})

	t.Run("replacing by URL keeps the existing row id", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewDocumentService(db)
		ctx := context.Background()

		first := &docdex.Document{URL: "https://docs.example.com/intro", Content: "v1"}
		require.NoError(t, svc.UpsertDocumentByURL(ctx, first))

		second := &docdex.Document{URL: "https://docs.example.com/intro", Title: "Intro", Content: "v2"}
		require.NoError(t, svc.UpsertDocumentByURL(ctx, second))

		assert.Equal(t, first.ID, second.ID)

		found, err := svc.FindDocumentByURL(ctx, "https://docs.example.com/intro")
		require.NoError(t, err)
		assert.Equal(t, "v2", found.Content)
		assert.Equal(t, "Intro", found.Title)
	})

	t.Run("returns error for invalid document", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewDocumentService(db)

		err := svc.UpsertDocumentByURL(context.Background(), &docdex.Document{})
		require.Error(t, err)
		assert.Equal(t, docdex.EINVALID, docdex.ErrorCode(err))
	})
}

func TestDocumentService_FindDocumentByURL(t *testing.T) {
	t.Parallel()

	t.Run("round trips all fields", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewDocumentService(db)
		ctx := context.Background()

		doc := &docdex.Document{
			URL:         "https://docs.example.com/guide",
			Title:       "Guide",
			Content:     "# Guide",
			ContentHash: "abc123",
		}
		require.NoError(t, svc.UpsertDocumentByURL(ctx, doc))

		found, err := svc.FindDocumentByURL(ctx, doc.URL)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, found.ID)
		assert.Equal(t, doc.Title, found.Title)
		assert.Equal(t, doc.Content, found.Content)
		assert.Equal(t, doc.ContentHash, found.ContentHash)
		assert.False(t, found.IndexedAt.IsZero())
	})

	t.Run("returns ENOTFOUND for missing URL", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		svc := sqlite.NewDocumentService(db)

		_, err := svc.FindDocumentByURL(context.Background(), "https://docs.example.com/missing")
		require.Error(t, err)
		assert.Equal(t, docdex.ENOTFOUND, docdex.ErrorCode(err))
	})
}

func TestDocumentService_DeleteDocumentsByHost(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	docs := sqlite.NewDocumentService(db)
	chunks := sqlite.NewChunkService(db)
	ctx := context.Background()

	target := &docdex.Document{URL: "https://docs.example.com/a", Content: "a"}
	require.NoError(t, docs.UpsertDocumentByURL(ctx, target))
	require.NoError(t, chunks.ReplaceChunks(ctx, target.ID, []*docdex.Chunk{{Content: "a chunk"}}))

	// Same string appears in the path of another host's URL; only true
	// hostname matches may be deleted.
	decoy := &docdex.Document{URL: "https://other.dev/mirror/docs.example.com/a", Content: "decoy"}
	require.NoError(t, docs.UpsertDocumentByURL(ctx, decoy))

	require.NoError(t, docs.DeleteDocumentsByHost(ctx, "docs.example.com"))

	_, err := docs.FindDocumentByURL(ctx, target.URL)
	assert.Equal(t, docdex.ENOTFOUND, docdex.ErrorCode(err))

	_, err = docs.FindDocumentByURL(ctx, decoy.URL)
	assert.NoError(t, err)

	// Cascade removed the chunks and the FTS rows went with them.
	var chunkCount int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&chunkCount))
	assert.Zero(t, chunkCount)

	var ftsCount int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks_fts").Scan(&ftsCount))
	assert.Zero(t, ftsCount)
}
