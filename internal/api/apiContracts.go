package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	HasContext bool     `json:"has_context"`
}

type Result struct {
	Status              string       `json:"status"`
	RAGExternalResponse *RAGResponse `json:"rag_response,omitempty"`
}

type InitJobResponse struct {
	Id         string `json:"id"`
	StatusURL  string `json:"status_url"`
	DocumentId string `json:"document_id,omitempty"`
}

type DocumentResponse struct {
	Id          string         `json:"id"`
	Name        string         `json:"name"`
	Kind        string         `json:"kind"`
	Status      string         `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	PageCount   int            `json:"page_count,omitempty"`
	MimeType    string         `json:"mime_type,omitempty"`
	Error       *DocumentError `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	UpdatedTime time.Time      `json:"updated_time"`
}

type DocumentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CatalogJobResponse struct {
	Id          string      `json:"id"`
	TargetId    string      `json:"target_id"`
	Kind        string      `json:"kind"`
	Status      string      `json:"status"`
	ProposalId  string      `json:"proposal_id,omitempty"`
	Error       string      `json:"error,omitempty"`
	SourceCount int         `json:"source_count"`
	CreatedTime time.Time   `json:"created_time"`
	UpdatedTime time.Time   `json:"updated_time"`
	WorkerJob   *JobPointer `json:"worker_job,omitempty"`
}

type JobPointer struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type ProposalResponse struct {
	Id          string         `json:"id"`
	JobId       string         `json:"job_id"`
	TargetId    string         `json:"target_id"`
	Kind        string         `json:"kind"`
	Status      string         `json:"status"`
	Items       []ProposalItem `json:"items"`
	Warnings    []string       `json:"warnings,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
}

type ProposalItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	HasPrice    bool    `json:"has_price"`
	Currency    string  `json:"currency,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// requests---------------------

type AskRequest struct {
	Question string `json:"question" validate:"required"`
}

type CreateDocumentRequest struct {
	Name       string `json:"name" validate:"required"`
	Kind       string `json:"kind" validate:"required"`
	SourceText string `json:"source_text,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

type CatalogJobRequest struct {
	TargetId string          `json:"target_id" validate:"required"`
	Kind     string          `json:"kind" validate:"required"`
	Sources  []SourceRequest `json:"sources" validate:"required"`
}

type SourceRequest struct {
	Kind        string `json:"kind"`
	SourceURL   string `json:"source_url,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`
}

type RejectProposalRequest struct {
	Reason string `json:"reason,omitempty"`
}
