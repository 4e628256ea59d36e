package vectorDB

import (
	"context"

	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
)

// SearchHit is one scored chunk match. Score is cosine similarity as the
// store reports it, higher is closer.
type SearchHit struct {
	DocumentId   string
	DocumentName string
	ChunkId      string
	Text         string
	Score        float32
}

// DataProcessor is the vector store surface. Every operation is tenant scoped;
// an implementation must make it impossible for one tenant's query to see
// another tenant's chunks.
type DataProcessor interface {
	EnsureCollections(ctx context.Context) error

	UpsertChunks(ctx context.Context, doc knowledge.KnowledgeDocument, chunks []knowledge.KnowledgeChunk, vectors [][]float32) error
	CountActiveChunks(ctx context.Context, tenantId string, excludeDocumentId string) (uint64, error)
	SetDocumentChunkStatus(ctx context.Context, tenantId string, documentId string, status knowledge.ChunkStatus) error
	DeleteDocumentChunks(ctx context.Context, tenantId string, documentId string) error

	Search(ctx context.Context, tenantId string, queryVector []float32, limit uint64) ([]SearchHit, error)

	GetCachedAnswer(ctx context.Context, tenantId string, queryVector []float32) (string, bool, error)
	SaveToCache(ctx context.Context, tenantId string, id string, vector []float32, question string, answer string) error
}
