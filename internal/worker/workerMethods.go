package worker

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/svemana/KnowledgeAPI/internal/config"
	jobmodel "github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		// Record total time at the end
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, timeoutFor(job.JobType))
	defer cancel()
	logger.With("trace Id ", job.TraceId)
	logger.Debug("Processing job:", "job Id:", job.Id, "type:", job.JobType)

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	switch job.JobType {
	case jobmodel.JobTypeIngest:
		job.CurrentStep = jobmodel.IngestExtracting
		job = _ragService.IngestDocument(ctx, job)

	case jobmodel.JobTypeCatalogIngest:
		job.CurrentStep = jobmodel.CatalogRunning
		job = processCatalogJob(ctx, job)

	default:
		job = _ragService.ProcessQuestion(ctx, job)
	}

	job.EndTime = time.Now()
	//the services set the final status themselves, the worker only persists it
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to save final job state", "err", err)
	}
}

// timeoutFor gives ingestion-type jobs longer deadlines: they fan out to
// fetchers, embeddings and generation while a query is a single round trip.
func timeoutFor(jobType jobmodel.JobType) time.Duration {
	switch jobType {
	case jobmodel.JobTypeIngest:
		return config.IngestJobTimeout
	case jobmodel.JobTypeCatalogIngest:
		return config.CatalogJobTimeout
	default:
		return config.QueryJobTimeout
	}
}

// processCatalogJob drives the catalog state machine. The catalog job carries
// its own failed state, so a domain failure still completes the worker job.
func processCatalogJob(ctx context.Context, job jobmodel.Job) jobmodel.Job {
	_, err := _catalogRunner.ProcessJob(ctx, job.TenantId, job.JobPayload.CatalogJobId)
	if err != nil {
		logger.Error("Catalog job processing failed", "catalogJobId", job.JobPayload.CatalogJobId, "err", err)
		job.Status = jobmodel.JobStatusError
		job.CurrentStep = jobmodel.Error
		job.Error = jobmodel.JobError{
			Code:    http.StatusInternalServerError,
			Message: "Internal Server Error",
			Retry:   true,
		}
		return job
	}
	job.Status = jobmodel.JobStatusComplete
	job.CurrentStep = jobmodel.Complete
	return job
}

func removeWorker(reason string) {

	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker ", "reason", reason, "workerCount", currentWorkerCount)
	metrics.DecrementActiveWorkerCount()

}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update status in Redis", "err", err)
	}
}
