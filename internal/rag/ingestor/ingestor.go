package ingestor

import (
	"context"
	"errors"
	"time"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
	"github.com/svemana/KnowledgeAPI/internal/extract"
	"github.com/svemana/KnowledgeAPI/internal/metrics"
	"github.com/svemana/KnowledgeAPI/internal/rag/chunker"
	"github.com/svemana/KnowledgeAPI/internal/rag/embedding"
	"github.com/svemana/KnowledgeAPI/internal/rag/vectorDB"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var (
	ErrCapExceeded  = errors.New("TenantChunkCapExceeded")
	ErrNoUsableText = errors.New("NoUsableText")
)

// Extractor is the source-to-text collaborator.
type Extractor interface {
	Extract(ctx context.Context, doc knowledge.KnowledgeDocument) (extract.Extraction, error)
}

// DocumentStore persists document records through their status transitions.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc knowledge.KnowledgeDocument) error
	GetDocument(ctx context.Context, tenantId string, id string) (knowledge.KnowledgeDocument, error)
}

type Ingestor struct {
	extractor Extractor
	embedder  embedding.Embedder
	vector    vectorDB.DataProcessor
	docs      DocumentStore
	logger    *logger_i.Logger
}

func NewIngestor(extractor Extractor, embedder embedding.Embedder, vector vectorDB.DataProcessor, docs DocumentStore) *Ingestor {
	return &Ingestor{
		extractor: extractor,
		embedder:  embedder,
		vector:    vector,
		docs:      docs,
		logger:    logger_i.NewLogger("Ingestor"),
	}
}

// IngestDocument runs one document through extract, chunk, cap check, embed and
// upsert, and finalizes the record as active or failed. The cap check happens
// before any embedding call so a tenant at its limit costs nothing.
func (in *Ingestor) IngestDocument(ctx context.Context, doc knowledge.KnowledgeDocument) (knowledge.KnowledgeDocument, error) {
	log := in.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "tenantId", doc.TenantId, "documentId", doc.Id)

	doc.Status = knowledge.DocStatusProcessing
	doc.UpdatedTime = time.Now()
	if err := in.docs.SaveDocument(ctx, doc); err != nil {
		return doc, err
	}

	extraction, err := in.extractor.Extract(ctx, doc)
	if err != nil {
		code := "ExtractFailed"
		if extraction.Class != "" {
			code = string(extraction.Class)
		}
		return in.fail(ctx, doc, code, err)
	}

	chunks := chunker.Split(extraction.Text, config.ChunkSize, config.ChunkOverlap)
	if len(chunks) == 0 {
		return in.fail(ctx, doc, "NoUsableText", ErrNoUsableText)
	}

	// own previous chunks never count against the tenant on re-ingest
	existing, err := in.vector.CountActiveChunks(ctx, doc.TenantId, doc.Id)
	if err != nil {
		return in.fail(ctx, doc, "VectorStoreFailed", err)
	}
	if existing+uint64(len(chunks)) > config.TenantActiveChunkCap {
		log.Warn("tenant chunk cap exceeded", "existing", existing, "incoming", len(chunks))
		metrics.CountTenantCapRejection()
		return in.fail(ctx, doc, "TenantChunkCapExceeded", ErrCapExceeded)
	}

	// stale points from a previous version of this document would otherwise
	// survive under their old content-derived ids
	if err := in.vector.DeleteDocumentChunks(ctx, doc.TenantId, doc.Id); err != nil {
		return in.fail(ctx, doc, "VectorStoreFailed", err)
	}

	records := buildChunkRecords(doc, chunks)
	if err := in.embedAndUpsert(ctx, doc, records); err != nil {
		return in.fail(ctx, doc, "EmbeddingFailed", err)
	}

	doc.Status = knowledge.DocStatusActive
	doc.ChunkCount = len(records)
	doc.ContentHash = knowledge.HashText(extraction.Text)
	doc.PageCount = extraction.PageCount
	doc.MimeType = extraction.MimeType
	doc.Error = nil
	doc.UpdatedTime = time.Now()
	if err := in.docs.SaveDocument(ctx, doc); err != nil {
		return doc, err
	}

	metrics.CountChunksUpserted(len(records))
	log.Info("document ingested", "chunks", len(records))
	return doc, nil
}

// SetDocumentEnabled flips a document in or out of retrieval without touching
// its stored vectors.
func (in *Ingestor) SetDocumentEnabled(ctx context.Context, tenantId string, documentId string, enabled bool) (knowledge.KnowledgeDocument, error) {
	doc, err := in.docs.GetDocument(ctx, tenantId, documentId)
	if err != nil {
		return knowledge.KnowledgeDocument{}, err
	}

	chunkStatus := knowledge.ChunkStatusDisabled
	docStatus := knowledge.DocStatusDisabled
	if enabled {
		chunkStatus = knowledge.ChunkStatusActive
		docStatus = knowledge.DocStatusActive
	}

	if err := in.vector.SetDocumentChunkStatus(ctx, tenantId, documentId, chunkStatus); err != nil {
		return doc, err
	}
	doc.Status = docStatus
	doc.UpdatedTime = time.Now()
	return doc, in.docs.SaveDocument(ctx, doc)
}

// DeleteDocument removes the record and every vector point belonging to it.
func (in *Ingestor) DeleteDocument(ctx context.Context, tenantId string, documentId string) error {
	return in.vector.DeleteDocumentChunks(ctx, tenantId, documentId)
}

func buildChunkRecords(doc knowledge.KnowledgeDocument, chunks []chunker.Chunk) []knowledge.KnowledgeChunk {
	records := make([]knowledge.KnowledgeChunk, len(chunks))
	for i, c := range chunks {
		records[i] = knowledge.KnowledgeChunk{
			DocumentId:  doc.Id,
			TenantId:    doc.TenantId,
			Index:       c.Index,
			Text:        c.Text,
			ContentHash: c.Hash,
			Status:      knowledge.ChunkStatusActive,
		}
	}
	return records
}

// embedAndUpsert walks the records in upsert-sized batches so a long document
// neither blows the embedding request size nor holds all vectors in memory.
func (in *Ingestor) embedAndUpsert(ctx context.Context, doc knowledge.KnowledgeDocument, records []knowledge.KnowledgeChunk) error {
	for start := 0; start < len(records); start += config.UpsertBatchSize {
		end := start + config.UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Text
		}

		began := time.Now()
		vectors, err := in.embedder.EmbedDocuments(ctx, texts)
		metrics.CaptureExecutionMetrics("embedding", time.Since(began))
		if err != nil {
			return err
		}

		began = time.Now()
		err = in.vector.UpsertChunks(ctx, doc, batch, vectors)
		metrics.CaptureExecutionMetrics("vector_upsert", time.Since(began))
		if err != nil {
			return err
		}
	}
	return nil
}

func (in *Ingestor) fail(ctx context.Context, doc knowledge.KnowledgeDocument, code string, cause error) (knowledge.KnowledgeDocument, error) {
	in.logger.Error("ingestion failed", "traceId", ctx.Value(config.TRACE_ID_KEY),
		"documentId", doc.Id, "code", code, "error", cause)

	doc.Status = knowledge.DocStatusFailed
	doc.Error = &knowledge.DocumentError{Code: code, Message: cause.Error()}
	doc.UpdatedTime = time.Now()
	if saveErr := in.docs.SaveDocument(ctx, doc); saveErr != nil {
		in.logger.Error("saving failed document record", "error", saveErr)
	}
	return doc, cause
}
