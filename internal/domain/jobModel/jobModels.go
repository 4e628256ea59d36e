package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	QueryInit        InternalStatus = "Init"
	CacheCall        InternalStatus = "CacheCall"
	RetrievalCall    InternalStatus = "Retrieval"
	LLMCall          InternalStatus = "LLM"
	VectorDBCall     InternalStatus = "VectorDB"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"

	IngestInit       InternalStatus = "IngestInit"
	IngestExtracting InternalStatus = "IngestExtracting"
	IngestEmbedding  InternalStatus = "IngestEmbedding"
	CatalogInit      InternalStatus = "CatalogInit"
	CatalogRunning   InternalStatus = "CatalogRunning"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery         JobType = "Query"
	JobTypeIngest        JobType = "Ingest"
	JobTypeCatalogIngest JobType = "CatalogIngest"
)

// Job is one unit of worker-pool work. It is persisted on every status change so
// the trigger side can poll it, and redelivery of the same job id is harmless.
type Job struct {
	Id          string         `json:"id"`
	TenantId    string         `json:"tenant_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	//query jobs
	Question   string   `json:"question,omitempty"`
	Answer     string   `json:"answer,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	HasContext bool     `json:"has_context,omitempty"`

	//document ingest jobs
	DocumentId string `json:"document_id,omitempty"`

	//catalog ingest jobs
	CatalogJobId string `json:"catalog_job_id,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
