package gemini

import (
	"context"

	"github.com/fwojciec/docdex"
	"google.golang.org/genai"
)

const embeddingModel = "gemini-embedding-001"

// Ensure Embedder implements docdex.Embedder at compile time.
var _ docdex.Embedder = (*Embedder)(nil)

// Embedder implements docdex.Embedder using the Gemini embedding API.
type Embedder struct {
	client *genai.Client
}

// NewEmbedder creates a new Embedder.
func NewEmbedder(client *genai.Client) *Embedder {
	return &Embedder{client: client}
}

// Embed returns one embedding vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, "user"))
	}

	result, err := e.client.Models.EmbedContent(ctx, embeddingModel, contents, nil)
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, docdex.Errorf(docdex.EINTERNAL, "gemini returned %d embeddings for %d inputs",
			embeddingCount(result), len(texts))
	}

	vectors := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, docdex.Errorf(docdex.EINTERNAL, "gemini returned empty embedding at index %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func embeddingCount(r *genai.EmbedContentResponse) int {
	if r == nil {
		return 0
	}
	return len(r.Embeddings)
}
