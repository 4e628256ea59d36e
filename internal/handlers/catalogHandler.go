package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/svemana/KnowledgeAPI/internal/adapter"
	"github.com/svemana/KnowledgeAPI/internal/adapter/utils"
	"github.com/svemana/KnowledgeAPI/internal/api"
	"github.com/svemana/KnowledgeAPI/internal/catalog"
	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/data/store"
	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
)

// SubmitCatalogJobHandler registers a catalog ingest job and, when the
// submission is new, queues its processing. A duplicate submission returns the
// job already holding the idempotency key without queueing anything.
func SubmitCatalogJobHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	var requestData api.CatalogJobRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || !validCatalogRequest(requestData) {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}

	tenantId := tenantFrom(r.Context())
	ingestJob, isNew, err := handlerInstance.service.Catalog.SubmitJob(
		r.Context(), tenantId, requestData.TargetId, requestData.Kind, adapter.ToSourceRefs(requestData.Sources))
	if err != nil {
		logRH.Error("Submitting catalog job failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Internal Server Error")
		return
	}

	workerJobId := ""
	if isNew {
		newData := newJobData{
			id:           utils.GetNewUUID(),
			tenantId:     tenantId,
			traceId:      traceFrom(r.Context()),
			jobType:      jobModel.JobTypeCatalogIngest,
			catalogJobId: ingestJob.Id,
		}
		CreateNewJob(newData)
		workerJobId = newData.id
	}

	status := http.StatusAccepted
	if !isNew {
		status = http.StatusOK
	}
	writeJsonResponse(w, status, adapter.ToCatalogJobResponse(ingestJob, workerJobId))
}

func validCatalogRequest(req api.CatalogJobRequest) bool {
	if req.TargetId == "" || req.Kind == "" {
		return false
	}
	if len(req.Sources) == 0 || len(req.Sources) > config.MaxSourcesPerJob {
		return false
	}
	for _, src := range req.Sources {
		if src.SourceURL == "" && src.StoragePath == "" {
			return false
		}
	}
	return true
}

func GetCatalogJobHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	ingestJob, err := handlerInstance.service.CatalogStore.GetIngestJob(r.Context(), tenantFrom(r.Context()), id)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, id, "Catalog job not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToCatalogJobResponse(ingestJob, ""))
}

func GetProposalHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	proposal, err := handlerInstance.service.CatalogStore.GetProposal(r.Context(), tenantFrom(r.Context()), id)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, id, "Proposal not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToProposalResponse(proposal))
}

// ApplyProposalHandler moves a reviewed proposal into the live catalog.
func ApplyProposalHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	proposal, err := handlerInstance.service.Catalog.ApplyProposal(r.Context(), tenantFrom(r.Context()), id)
	if err != nil {
		writeProposalError(w, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToProposalResponse(proposal))
}

func RejectProposalHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.RejectProposalRequest
	defer r.Body.Close()
	//an empty body means rejection without a reason
	_ = json.NewDecoder(r.Body).Decode(&requestData)

	id := utils.GetChiURLParam(r, "id")
	proposal, err := handlerInstance.service.Catalog.RejectProposal(r.Context(), tenantFrom(r.Context()), id, requestData.Reason)
	if err != nil {
		writeProposalError(w, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToProposalResponse(proposal))
}

func writeProposalError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, catalog.ErrProposalNotReviewable):
		WriteErrorResponse(w, http.StatusConflict, id, "Proposal is not awaiting review")
	case errors.Is(err, store.ErrProposalNotFound), errors.Is(err, store.ErrIngestJobNotFound):
		WriteErrorResponse(w, http.StatusNotFound, id, "Proposal not found")
	default:
		logRH.Error("Proposal operation failed", "proposalId", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
	}
}
