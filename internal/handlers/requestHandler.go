package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/svemana/KnowledgeAPI/internal/adapter"
	"github.com/svemana/KnowledgeAPI/internal/adapter/utils"
	"github.com/svemana/KnowledgeAPI/internal/api"
	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var logRH *logger_i.Logger

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	return
}

// AskHandler accepts a question, queues a query job against the tenant's
// knowledge base and returns the job id to poll.
func AskHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.AskRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Ask handler reader :", err)
			}
		}(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !validAskRequest(requestData) {
			logRH.Warn("Bad Ask Request: ", "error:", err)
			WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
			return
		}

		newData := newJobData{
			id:       utils.GetNewUUID(),
			tenantId: tenantFrom(request.Context()),
			traceId:  traceFrom(request.Context()),
			jobType:  jobModel.JobTypeQuery,
			question: requestData.Question,
		}
		CreateNewJob(newData)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newData.id))
		return
	}
	logRH.Warn("Invalid Context by request ", request.RemoteAddr)
}

func validAskRequest(req api.AskRequest) bool {
	return req.Question != "" && len(req.Question) <= config.MaxQuestionLength
}

// GetJobStatusHandler retrieves the current status of a worker job by id.
func GetJobStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, traceFrom(r.Context()))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound || result.TenantId != tenantFrom(r.Context()) {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}
