package rag_test

import (
	"context"
	"sync"

	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
	"github.com/svemana/KnowledgeAPI/internal/extract"
	"github.com/svemana/KnowledgeAPI/internal/rag/vectorDB"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	OnSearch            func(ctx context.Context, tenantId string, queryVector []float32, limit uint64) ([]vectorDB.SearchHit, error)
	OnGetCachedAnswer   func(ctx context.Context, tenantId string, queryVector []float32) (string, bool, error)
	OnSaveToCache       func(ctx context.Context, tenantId string, id string, vector []float32, question string, answer string) error
	OnUpsertChunks      func(ctx context.Context, doc knowledge.KnowledgeDocument, chunks []knowledge.KnowledgeChunk, vectors [][]float32) error
	OnCountActiveChunks func(ctx context.Context, tenantId string, excludeDocumentId string) (uint64, error)
	OnSetChunkStatus    func(ctx context.Context, tenantId string, documentId string, status knowledge.ChunkStatus) error
	OnDeleteChunks      func(ctx context.Context, tenantId string, documentId string) error
}

func (m *MockVectorDB) EnsureCollections(ctx context.Context) error { return nil }

func (m *MockVectorDB) Search(ctx context.Context, tenantId string, v []float32, limit uint64) ([]vectorDB.SearchHit, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, tenantId, v, limit)
	}
	return []vectorDB.SearchHit{{DocumentId: "doc-1", DocumentName: "default", ChunkId: "c-1", Text: "default context", Score: 0.9}}, nil
}

func (m *MockVectorDB) GetCachedAnswer(ctx context.Context, tenantId string, v []float32) (string, bool, error) {
	if m.OnGetCachedAnswer != nil {
		return m.OnGetCachedAnswer(ctx, tenantId, v)
	}
	return "", false, nil
}

func (m *MockVectorDB) SaveToCache(ctx context.Context, tenantId string, id string, v []float32, q string, a string) error {
	if m.OnSaveToCache != nil {
		return m.OnSaveToCache(ctx, tenantId, id, v, q, a)
	}
	return nil
}

func (m *MockVectorDB) UpsertChunks(ctx context.Context, doc knowledge.KnowledgeDocument, chunks []knowledge.KnowledgeChunk, vectors [][]float32) error {
	if m.OnUpsertChunks != nil {
		return m.OnUpsertChunks(ctx, doc, chunks, vectors)
	}
	return nil
}

func (m *MockVectorDB) CountActiveChunks(ctx context.Context, tenantId string, excludeDocumentId string) (uint64, error) {
	if m.OnCountActiveChunks != nil {
		return m.OnCountActiveChunks(ctx, tenantId, excludeDocumentId)
	}
	return 0, nil
}

func (m *MockVectorDB) SetDocumentChunkStatus(ctx context.Context, tenantId string, documentId string, status knowledge.ChunkStatus) error {
	if m.OnSetChunkStatus != nil {
		return m.OnSetChunkStatus(ctx, tenantId, documentId, status)
	}
	return nil
}

func (m *MockVectorDB) DeleteDocumentChunks(ctx context.Context, tenantId string, documentId string) error {
	if m.OnDeleteChunks != nil {
		return m.OnDeleteChunks(ctx, tenantId, documentId)
	}
	return nil
}

type MockEmbedder struct {
	OnEmbedQuery     func(ctx context.Context, query string) ([]float32, error)
	OnEmbedDocuments func(ctx context.Context, chunks []string) ([][]float32, error)

	mu            sync.Mutex
	DocumentCalls [][]string
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if m.OnEmbedQuery != nil {
		return m.OnEmbedQuery(ctx, query)
	}
	return []float32{0.1}, nil
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, chunks []string) ([][]float32, error) {
	m.mu.Lock()
	m.DocumentCalls = append(m.DocumentCalls, chunks)
	m.mu.Unlock()

	if m.OnEmbedDocuments != nil {
		return m.OnEmbedDocuments(ctx, chunks)
	}
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = []float32{0.1}
	}
	return vectors, nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, question string, contextBlock string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, question string, contextBlock string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, question, contextBlock)
	}
	return "mocked llm response", nil
}

// MockExtractor implements ingestor.Extractor
type MockExtractor struct {
	OnExtract func(ctx context.Context, doc knowledge.KnowledgeDocument) (extract.Extraction, error)
}

func (m *MockExtractor) Extract(ctx context.Context, doc knowledge.KnowledgeDocument) (extract.Extraction, error) {
	if m.OnExtract != nil {
		return m.OnExtract(ctx, doc)
	}
	return extract.Extraction{Text: "default extracted text", MimeType: "text/plain"}, nil
}

// MockIngestor implements rag.DocumentIngestor
type MockIngestor struct {
	OnIngest func(ctx context.Context, doc knowledge.KnowledgeDocument) (knowledge.KnowledgeDocument, error)
}

func (m *MockIngestor) IngestDocument(ctx context.Context, doc knowledge.KnowledgeDocument) (knowledge.KnowledgeDocument, error) {
	if m.OnIngest != nil {
		return m.OnIngest(ctx, doc)
	}
	doc.Status = knowledge.DocStatusActive
	return doc, nil
}

// MockDocStore implements ingestor.DocumentStore
type MockDocStore struct {
	mu   sync.Mutex
	docs map[string]knowledge.KnowledgeDocument

	OnSaveDocument func(ctx context.Context, doc knowledge.KnowledgeDocument) error
}

func (m *MockDocStore) SaveDocument(ctx context.Context, doc knowledge.KnowledgeDocument) error {
	if m.OnSaveDocument != nil {
		if err := m.OnSaveDocument(ctx, doc); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = map[string]knowledge.KnowledgeDocument{}
	}
	m.docs[doc.TenantId+"/"+doc.Id] = doc
	return nil
}

func (m *MockDocStore) GetDocument(ctx context.Context, tenantId string, id string) (knowledge.KnowledgeDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[tenantId+"/"+id], nil
}

// Saved returns the last saved version of a document.
func (m *MockDocStore) Saved(tenantId string, id string) knowledge.KnowledgeDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[tenantId+"/"+id]
}
