package adapter

import (
	"fmt"
	"time"

	"github.com/svemana/KnowledgeAPI/internal/api"
	"github.com/svemana/KnowledgeAPI/internal/domain/ingestjob"
	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("jobs/%s", id),
	}
}

func ToInitDocumentResponse(jobId string, documentId string) api.InitJobResponse {
	res := ToInitJobResponse(jobId)
	res.DocumentId = documentId
	return res
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question:   ragData.Question,
		Answer:     ragData.Answer,
		Sources:    ragData.Sources,
		HasContext: ragData.HasContext,
	}
}

func ToDocumentResponse(doc knowledge.KnowledgeDocument) api.DocumentResponse {
	var errorPtr *api.DocumentError
	if doc.Error != nil {
		errorPtr = &api.DocumentError{Code: doc.Error.Code, Message: doc.Error.Message}
	}
	return api.DocumentResponse{
		Id:          doc.Id,
		Name:        doc.Name,
		Kind:        string(doc.Kind),
		Status:      string(doc.Status),
		ChunkCount:  doc.ChunkCount,
		PageCount:   doc.PageCount,
		MimeType:    doc.MimeType,
		Error:       errorPtr,
		CreatedTime: doc.CreatedTime,
		UpdatedTime: doc.UpdatedTime,
	}
}

func ToDocumentListResponse(docs []knowledge.KnowledgeDocument) []api.DocumentResponse {
	out := make([]api.DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = ToDocumentResponse(doc)
	}
	return out
}

func ToCatalogJobResponse(job ingestjob.IngestJob, workerJobId string) api.CatalogJobResponse {
	res := api.CatalogJobResponse{
		Id:          job.Id,
		TargetId:    job.TargetId,
		Kind:        job.Kind,
		Status:      string(job.Status),
		ProposalId:  job.ProposalId,
		Error:       job.Error,
		SourceCount: len(job.Sources),
		CreatedTime: job.CreatedTime,
		UpdatedTime: job.UpdatedTime,
	}
	if workerJobId != "" {
		pointer := api.JobPointer{Id: workerJobId, StatusURL: fmt.Sprintf("jobs/%s", workerJobId)}
		res.WorkerJob = &pointer
	}
	return res
}

func ToProposalResponse(proposal ingestjob.IngestProposal) api.ProposalResponse {
	items := make([]api.ProposalItem, len(proposal.Items))
	for i, item := range proposal.Items {
		items[i] = api.ProposalItem{
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			HasPrice:    item.HasPrice,
			Currency:    item.Currency,
			Category:    item.Category,
		}
	}
	return api.ProposalResponse{
		Id:          proposal.Id,
		JobId:       proposal.JobId,
		TargetId:    proposal.TargetId,
		Kind:        proposal.Kind,
		Status:      string(proposal.Status),
		Items:       items,
		Warnings:    proposal.Warnings,
		CreatedTime: proposal.CreatedTime,
	}
}

func ToSourceRefs(sources []api.SourceRequest) []ingestjob.SourceRef {
	out := make([]ingestjob.SourceRef, len(sources))
	for i, s := range sources {
		out[i] = ingestjob.SourceRef{
			Kind:        knowledge.SourceKind(s.Kind),
			SourceURL:   s.SourceURL,
			StoragePath: s.StoragePath,
		}
	}
	return out
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status:              string(api.JobStatusError),
			RAGExternalResponse: ToRAGExternalStatus(jobModel.JobPayload{}),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
