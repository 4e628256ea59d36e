package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/job"
	"github.com/svemana/KnowledgeAPI/internal/metrics"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})

}

type newJobData struct {
	id           string
	tenantId     string
	traceId      string
	jobType      jobModel.JobType
	question     string
	documentId   string
	catalogJobId string
}

func CreateNewJob(newJob newJobData) {
	logJH.With("traceId", newJob.traceId, "job id", newJob.id)
	logJH.Info("To create new job", "type", newJob.jobType)
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.TenantId = newJob.tenantId
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.JobType = newJob.jobType

	switch newJob.jobType {
	case jobModel.JobTypeIngest:
		_job.CurrentStep = jobModel.IngestInit
		_job.JobPayload.DocumentId = newJob.documentId
	case jobModel.JobTypeCatalogIngest:
		_job.CurrentStep = jobModel.CatalogInit
		_job.JobPayload.CatalogJobId = newJob.catalogJobId
	default:
		_job.CurrentStep = jobModel.QueryInit
		_job.JobPayload.Question = newJob.question
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//a new worker is started every N requests, and immediately for ingestion-type
	//jobs since those involve slow external calls and would otherwise starve the
	//query path; idle workers retire on their own
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1) //after sending a request increment counter
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || newJob.jobType != jobModel.JobTypeQuery {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Worker count ", accurateCount)
		h.service.DispatcherChannel <- true
	}
}
