package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/ingestjob"
	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/job"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

// MockRagService to track if jobs are executed
type MockRagService struct {
	ProcessedCount int32
}

func (m *MockRagService) ProcessQuestion(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	return j
}

type MockJobStore struct {
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {
}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

type MockCatalogProcessor struct {
	ProcessedCount int32
	OnProcess      func(ctx context.Context, tenantId string, jobId string) (ingestjob.IngestJob, error)
}

func (m *MockCatalogProcessor) ProcessJob(ctx context.Context, tenantId string, jobId string) (ingestjob.IngestJob, error) {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnProcess != nil {
		return m.OnProcess(ctx, tenantId, jobId)
	}
	return ingestjob.IngestJob{Id: jobId, TenantId: tenantId, Status: ingestjob.JobNeedsReview}, nil
}

func TestWorkerPool_Flow(t *testing.T) {
	// 1. Setup
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          &MockJobStore{},
	}
	mockRag := &MockRagService{}
	mockCatalog := &MockCatalogProcessor{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	InitServices(jobSvc, mockRag, mockCatalog)
	InitWorkerPool(stopChan, wg)

	// Reset global state for test
	atomic.StoreInt64(&currentWorkerCount, 0)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		// Signal dispatcher to create a worker
		jobSvc.DispatcherChannel <- true

		// Give it a millisecond to spawn
		time.Sleep(50 * time.Millisecond)

		count := atomic.LoadInt64(&currentWorkerCount)
		if count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Worker processes a query job", func(t *testing.T) {
		testJob := jobModel.Job{Id: "test-1", TenantId: "tenant-1", JobType: jobModel.JobTypeQuery}
		jobSvc.JobChannel <- testJob

		// Wait for worker to pick up and process
		time.Sleep(50 * time.Millisecond)

		processed := atomic.LoadInt32(&mockRag.ProcessedCount)
		if processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
	})

	t.Run("Worker routes catalog jobs to the runner", func(t *testing.T) {
		testJob := jobModel.Job{
			Id:       "test-2",
			TenantId: "tenant-1",
			JobType:  jobModel.JobTypeCatalogIngest,
		}
		testJob.JobPayload.CatalogJobId = "cjob-1"
		jobSvc.JobChannel <- testJob

		time.Sleep(50 * time.Millisecond)

		if atomic.LoadInt32(&mockCatalog.ProcessedCount) != 1 {
			t.Errorf("Expected catalog runner to process the job")
		}
		// the rag service must not see catalog jobs
		if atomic.LoadInt32(&mockRag.ProcessedCount) != 1 {
			t.Errorf("Catalog job leaked into the rag service")
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		// Send stop signal
		close(stopChan)

		// Wait for workers to exit
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	// Temporarily override config/globals for test
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 2) // Must be > 1 based on your logic
	logger = logger_i.NewLogger("TestWorkerPool")
	jobSvc := &job.Service{
		JobChannel: make(chan jobModel.Job),
	}
	InitServices(jobSvc, &MockRagService{}, &MockCatalogProcessor{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	// Spawn 1 worker manually
	createWorker()
	time.Sleep(config.IdleWorkerTimeout)

	time.Sleep(100 * time.Millisecond)
	count := atomic.LoadInt64(&currentWorkerCount)
	if count != 0 {
		t.Errorf("Assertion Failed: Worker should have timed out and retired, but count is %d", count)
	}
}
