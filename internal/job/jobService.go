package job

import (
	"context"

	"github.com/svemana/KnowledgeAPI/internal/domain/ingestjob"
	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
)

// DocumentStore is the document-record persistence the trigger side reads and
// writes. Implemented by the Redis document store.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc knowledge.KnowledgeDocument) error
	GetDocument(ctx context.Context, tenantId string, id string) (knowledge.KnowledgeDocument, error)
	ListDocuments(ctx context.Context, tenantId string) ([]knowledge.KnowledgeDocument, error)
	DeleteDocument(ctx context.Context, tenantId string, id string) error
}

// DocumentManager covers the synchronous document lifecycle operations that
// never go through the worker pool.
type DocumentManager interface {
	SetDocumentEnabled(ctx context.Context, tenantId string, documentId string, enabled bool) (knowledge.KnowledgeDocument, error)
	DeleteDocument(ctx context.Context, tenantId string, documentId string) error
}

// CatalogRunner is the catalog ingest state machine surface the handlers call.
type CatalogRunner interface {
	SubmitJob(ctx context.Context, tenantId string, targetId string, kind string, sources []ingestjob.SourceRef) (ingestjob.IngestJob, bool, error)
	ApplyProposal(ctx context.Context, tenantId string, proposalId string) (ingestjob.IngestProposal, error)
	RejectProposal(ctx context.Context, tenantId string, proposalId string, reason string) (ingestjob.IngestProposal, error)
}

// CatalogReader reads catalog job and proposal records for status endpoints.
type CatalogReader interface {
	GetIngestJob(ctx context.Context, tenantId string, id string) (ingestjob.IngestJob, error)
	GetProposal(ctx context.Context, tenantId string, id string) (ingestjob.IngestProposal, error)
}

// UploadStore receives uploaded source files and hands back opaque storage paths.
type UploadStore interface {
	Save(ctx context.Context, tenantId string, fileName string, data []byte) (string, error)
}

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	DocumentStore     DocumentStore
	Documents         DocumentManager
	Catalog           CatalogRunner
	CatalogStore      CatalogReader
	Uploads           UploadStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	DocumentStore     DocumentStore
	Documents         DocumentManager
	Catalog           CatalogRunner
	CatalogStore      CatalogReader
	Uploads           UploadStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		DocumentStore:     cfg.DocumentStore,
		Documents:         cfg.Documents,
		Catalog:           cfg.Catalog,
		CatalogStore:      cfg.CatalogStore,
		Uploads:           cfg.Uploads,
	}
}
