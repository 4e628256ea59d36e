package rag

import (
	"context"
	"net/http"
	"time"

	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/metrics"
	"github.com/svemana/KnowledgeAPI/internal/rag/retriever"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessQuestion", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) ([]float32, error) {
	*job = logOutput(*job, jobModel.EmbeddingAPICall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.EmbedQuery(ctx, job.JobPayload.Question)
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) (string, bool) {
	*job = logOutput(*job, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, _ := s.vectorDB.GetCachedAnswer(ctx, job.TenantId, emb)
	metrics.CountAnswerCache(found)
	return ans, found
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) (retriever.Result, error) {
	*job = logOutput(*job, jobModel.RetrievalCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	return s.retriever.RetrieveWithVector(ctx, job.TenantId, emb)
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, contextBlock string) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, job.JobPayload.Question, contextBlock)
}
