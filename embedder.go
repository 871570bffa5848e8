package docdex

import "context"

// Embedder computes vector embeddings for texts. The embedding model
// itself is an external collaborator; this is the contract the
// processing pipeline requires of it.
type Embedder interface {
	// Embed returns one embedding per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
