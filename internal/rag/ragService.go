package rag

import (
	"context"
	"time"

	"github.com/svemana/KnowledgeAPI/internal/adapter/utils"
	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
	"github.com/svemana/KnowledgeAPI/internal/metrics"
	"github.com/svemana/KnowledgeAPI/internal/rag/embedding"
	"github.com/svemana/KnowledgeAPI/internal/rag/ingestor"
	"github.com/svemana/KnowledgeAPI/internal/rag/llm"
	"github.com/svemana/KnowledgeAPI/internal/rag/retriever"
	"github.com/svemana/KnowledgeAPI/internal/rag/vectorDB"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

const noContextAnswer = "I don't have any information about that yet. " +
	"Try adding the relevant document to the knowledge base first."

// Service is all the worker sees. It hides the embedder, the vector store and
// the model providers behind two job-shaped operations.
type Service interface {
	ProcessQuestion(ctx context.Context, job jobModel.Job) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

// DocumentIngestor runs one document through the ingestion pipeline.
type DocumentIngestor interface {
	IngestDocument(ctx context.Context, doc knowledge.KnowledgeDocument) (knowledge.KnowledgeDocument, error)
}

type service struct {
	vectorDB    vectorDB.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	retriever   *retriever.Retriever
	ingestor    DocumentIngestor
	docs        ingestor.DocumentStore
	logger      *logger_i.Logger
}

func NewService(vector vectorDB.DataProcessor, llmProvider llm.Provider, em embedding.Embedder, ing DocumentIngestor, docs ingestor.DocumentStore) Service {
	return &service{
		vectorDB:    vector,
		llmProvider: llmProvider,
		embedder:    em,
		retriever:   retriever.NewRetriever(em, vector),
		ingestor:    ing,
		docs:        docs,
		logger:      logger_i.NewLogger("RAG Service :"),
	}
}

func (s *service) ProcessQuestion(ctx context.Context, jobt jobModel.Job) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "JobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	jobt.CurrentStep = jobModel.QueryInit

	// Embedding
	queryVector, err := s.executeEmbeddingStep(processContext, inMethodLogger, &jobt)
	if err != nil {
		return s.jobError(jobt, err, "EMBEDDING_FAILURE", true)
	}

	// Cache Check
	cachedAnswer, found := s.executeCacheCheckStep(ctx, inMethodLogger, &jobt, queryVector)
	if found {
		jobt.JobPayload.HasContext = true
		return returnOutput(jobt, cachedAnswer)
	}

	// Retrieval
	retrieved, err := s.executeRetrievalStep(processContext, inMethodLogger, &jobt, queryVector)
	if err != nil {
		return s.jobError(jobt, err, "VECTOR_DB_FAILURE", true)
	}
	if !retrieved.HasContext {
		jobt.JobPayload.HasContext = false
		return returnOutput(jobt, noContextAnswer)
	}
	jobt.JobPayload.HasContext = true
	jobt.JobPayload.Sources = retrieved.Sources

	// LLM Generation
	answer, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, retrieved.ContextBlock)
	if err != nil {
		return s.jobError(jobt, err, "LLM_GENERATION_FAILURE", true)
	}

	//Background Cache Save
	go func() {
		err := s.vectorDB.SaveToCache(ctx, jobt.TenantId, utils.GetNewUUID(), queryVector, jobt.JobPayload.Question, answer)
		if err != nil {
			s.logger.Error("Failed to save to cache", "error", err)
		}
	}()

	return returnOutput(jobt, answer)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	job.CurrentStep = jobModel.IngestInit

	doc, err := s.docs.GetDocument(ctx, job.TenantId, job.JobPayload.DocumentId)
	if err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE", true)
	}

	job.CurrentStep = jobModel.IngestExtracting
	if _, err := s.ingestor.IngestDocument(ctx, doc); err != nil {
		//the document record carries the structured failure; the job only
		//reports that ingestion did not complete
		return s.jobError(job, err, "INGESTION_FAILURE", true)
	}

	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}
