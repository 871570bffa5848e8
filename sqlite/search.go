package sqlite

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/fwojciec/docdex"
)

// Compile-time interface verification.
var _ docdex.SearchService = (*SearchService)(nil)

// Search tuning.
const (
	// DefaultSearchLimit is used when the caller passes limit <= 0.
	DefaultSearchLimit = 10
	// lexicalCandidates bounds the FTS candidate pool per query.
	lexicalCandidates = 50
	// lexicalWeight and vectorWeight blend the two ranking signals.
	lexicalWeight = 0.4
	vectorWeight  = 0.6
)

// SearchService implements hybrid retrieval: FTS5 keyword matching
// blended with cosine similarity over stored embeddings. Without an
// embedder it degrades to pure keyword search.
type SearchService struct {
	db       *DB
	embedder docdex.Embedder // optional
}

// NewSearchService creates a new SearchService.
func NewSearchService(db *DB, embedder docdex.Embedder) *SearchService {
	return &SearchService{db: db, embedder: embedder}
}

// Search returns the top matching chunks for the query.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]docdex.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, docdex.Errorf(docdex.EINVALID, "search query required")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	scores := make(map[string]float64)

	lexical, err := s.lexicalScores(ctx, query)
	if err != nil {
		return nil, err
	}
	for id, score := range lexical {
		scores[id] += lexicalWeight * score
	}

	if s.embedder != nil {
		vector, err := s.vectorScores(ctx, query)
		if err != nil {
			return nil, err
		}
		for id, score := range vector {
			scores[id] += vectorWeight * score
		}
	}

	if len(scores) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return scores[ids[i]] > scores[ids[j]] })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	return s.loadResults(ctx, ids, scores)
}

// lexicalScores runs the FTS5 query and converts bm25 ranks (lower is
// better) into [0,1] scores.
func (s *SearchService) lexicalScores(ctx context.Context, query string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, bm25(chunks_fts)
		FROM chunks_fts
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery(query), lexicalCandidates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, err
		}
		// bm25 returns negative values for matches in SQLite.
		scores[id] = 1 / (1 + math.Abs(rank))
	}
	return scores, rows.Err()
}

// vectorScores embeds the query and scores all stored embeddings by
// cosine similarity.
func (s *SearchService) vectorScores(ctx context.Context, query string) (map[string]float64, error) {
	embedded, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embedded) == 0 || len(embedded[0]) == 0 {
		return nil, nil
	}
	queryVec := embedded[0]

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		if sim := cosineSimilarity(queryVec, decodeEmbedding(blob)); sim > 0 {
			scores[id] = sim
		}
	}
	return scores, rows.Err()
}

// loadResults hydrates chunks with their document's URL and title,
// preserving the given ranking order.
func (s *SearchService) loadResults(ctx context.Context, ids []string, scores map[string]float64) ([]docdex.SearchResult, error) {
	results := make([]docdex.SearchResult, 0, len(ids))
	for _, id := range ids {
		var chunk docdex.Chunk
		var docURL, title string
		err := s.db.QueryRowContext(ctx, `
			SELECT c.id, c.document_id, c.position, c.content, d.url, d.title
			FROM chunks c
			JOIN documents d ON d.id = c.document_id
			WHERE c.id = ?
		`, id).Scan(&chunk.ID, &chunk.DocumentID, &chunk.Position, &chunk.Content, &docURL, &title)
		if err != nil {
			// A chunk deleted between scoring and hydration is not an error.
			continue
		}
		results = append(results, docdex.SearchResult{
			Chunk: &chunk,
			URL:   docURL,
			Title: title,
			Score: scores[id],
		})
	}
	return results, nil
}

// ftsQuery turns free text into a safe FTS5 query by quoting each token.
// Unquoted user input is FTS5 syntax and breaks on operators like "-".
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or empty vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
