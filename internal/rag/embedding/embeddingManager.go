package embedding

import "context"

// Embedder separates query-time from document-time embedding because the model
// is asked to optimize differently for each.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	EmbedDocuments(ctx context.Context, chunks []string) ([][]float32, error)
}
