package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/svemana/KnowledgeAPI/internal/adapter/utils"
	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/ingestjob"
	"github.com/svemana/KnowledgeAPI/internal/extract"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var (
	ErrProposalNotReviewable = errors.New("proposal is not awaiting review")
	ErrNoUsableSources       = errors.New("no source yielded any text")
)

// Store is the persistence surface the runner drives. Implemented by the Redis
// catalog store.
type Store interface {
	SaveIngestJob(ctx context.Context, job ingestjob.IngestJob) error
	GetIngestJob(ctx context.Context, tenantId string, id string) (ingestjob.IngestJob, error)
	ReserveIdempotencyKey(ctx context.Context, tenantId string, key string, jobId string) (string, bool, error)
	ReleaseIdempotencyKey(ctx context.Context, tenantId string, key string) error
	SaveProposal(ctx context.Context, proposal ingestjob.IngestProposal) error
	GetProposal(ctx context.Context, tenantId string, id string) (ingestjob.IngestProposal, error)
	ApplyProposal(ctx context.Context, proposal ingestjob.IngestProposal, job ingestjob.IngestJob, items []ingestjob.CatalogItem) error
}

// SourceExtractor pulls text out of one catalog source.
type SourceExtractor interface {
	ExtractSource(ctx context.Context, src extract.SourceInput) (extract.Extraction, error)
}

// Runner owns the catalog ingest job state machine:
// queued -> processing -> needs_review -> applied, with failed reachable from
// processing and from rejection. Nothing touches the live catalog before a
// human applies the proposal.
type Runner struct {
	store     Store
	extractor SourceExtractor
	generator ItemGenerator
	logger    *logger_i.Logger
}

func NewRunner(store Store, extractor SourceExtractor, generator ItemGenerator) *Runner {
	return &Runner{
		store:     store,
		extractor: extractor,
		generator: generator,
		logger:    logger_i.NewLogger("Catalog Runner"),
	}
}

// SubmitJob registers a new ingest job unless an equivalent non-terminal job
// already holds the idempotency key, in which case that job comes back with
// isNew false. A terminal holder releases the key and a fresh job takes over.
func (r *Runner) SubmitJob(ctx context.Context, tenantId string, targetId string, kind string, sources []ingestjob.SourceRef) (ingestjob.IngestJob, bool, error) {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "tenantId", tenantId, "targetId", targetId)

	key := ingestjob.Key(tenantId, targetId, kind, sources)
	jobId := utils.GetNewUUID()

	holder, reserved, err := r.store.ReserveIdempotencyKey(ctx, tenantId, key, jobId)
	if err != nil {
		return ingestjob.IngestJob{}, false, err
	}

	if !reserved {
		existing, err := r.store.GetIngestJob(ctx, tenantId, holder)
		if err == nil && !existing.Terminal() {
			log.Info("duplicate submission folded into running job", "jobId", existing.Id)
			return existing, false, nil
		}
		//terminal or vanished holder frees the key for this submission
		if err := r.store.ReleaseIdempotencyKey(ctx, tenantId, key); err != nil {
			return ingestjob.IngestJob{}, false, err
		}
		if _, reserved, err = r.store.ReserveIdempotencyKey(ctx, tenantId, key, jobId); err != nil || !reserved {
			if err == nil {
				err = errors.New("idempotency key contested")
			}
			return ingestjob.IngestJob{}, false, err
		}
	}

	now := time.Now()
	job := ingestjob.IngestJob{
		Id:             jobId,
		TenantId:       tenantId,
		TargetId:       targetId,
		Kind:           kind,
		Sources:        sources,
		IdempotencyKey: key,
		Status:         ingestjob.JobQueued,
		CreatedTime:    now,
		UpdatedTime:    now,
	}
	if err := r.store.SaveIngestJob(ctx, job); err != nil {
		return ingestjob.IngestJob{}, false, err
	}

	log.Info("catalog ingest job submitted", "jobId", jobId, "sources", len(sources))
	return job, true, nil
}

// ProcessJob runs one queued job to needs_review or failed. Jobs in any other
// state are returned untouched, which makes worker redelivery harmless.
func (r *Runner) ProcessJob(ctx context.Context, tenantId string, jobId string) (ingestjob.IngestJob, error) {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "tenantId", tenantId, "jobId", jobId)

	job, err := r.store.GetIngestJob(ctx, tenantId, jobId)
	if err != nil {
		return ingestjob.IngestJob{}, err
	}
	if job.Status != ingestjob.JobQueued {
		log.Warn("job not queued, skipping", "status", job.Status)
		return job, nil
	}

	job.Status = ingestjob.JobProcessing
	job.UpdatedTime = time.Now()
	if err := r.store.SaveIngestJob(ctx, job); err != nil {
		return job, err
	}

	texts, warnings := r.extractSources(ctx, job.Sources)
	if len(texts) == 0 {
		return r.failJob(ctx, job, ErrNoUsableSources.Error())
	}

	items, err := r.generator.GenerateItems(ctx, job.Kind, strings.Join(texts, "\n\n"))
	if err != nil {
		return r.failJob(ctx, job, "item generation failed: "+err.Error())
	}

	if len(items) == 0 {
		warnings = append(warnings, "no items were extracted from the sources")
	}
	for _, item := range items {
		if !item.HasPrice {
			warnings = append(warnings, fmt.Sprintf("item %q has no visible price", item.Name))
		}
	}

	proposal := ingestjob.IngestProposal{
		Id:          utils.GetNewUUID(),
		TenantId:    job.TenantId,
		JobId:       job.Id,
		TargetId:    job.TargetId,
		Kind:        job.Kind,
		Items:       items,
		Warnings:    warnings,
		Status:      ingestjob.ProposalProposed,
		CreatedTime: time.Now(),
	}
	if err := r.store.SaveProposal(ctx, proposal); err != nil {
		return r.failJob(ctx, job, "saving proposal: "+err.Error())
	}

	job.Status = ingestjob.JobNeedsReview
	job.ProposalId = proposal.Id
	job.UpdatedTime = time.Now()
	if err := r.store.SaveIngestJob(ctx, job); err != nil {
		return job, err
	}

	log.Info("proposal ready for review", "proposalId", proposal.Id, "items", len(items), "warnings", len(warnings))
	return job, nil
}

// extractSources pulls every source concurrently. A failed source becomes a
// warning rather than sinking the job, as long as at least one source yields.
func (r *Runner) extractSources(ctx context.Context, sources []ingestjob.SourceRef) ([]string, []string) {
	type outcome struct {
		index int
		text  string
		err   error
		ref   string
	}

	results := make([]outcome, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src ingestjob.SourceRef) {
			defer wg.Done()
			extraction, err := r.extractor.ExtractSource(ctx, extract.Source(src.Kind, src.SourceURL, src.StoragePath))
			results[i] = outcome{index: i, text: extraction.Text, err: err, ref: src.Ref()}
		}(i, src)
	}
	wg.Wait()

	var texts []string
	var warnings []string
	for _, res := range results {
		if res.err != nil {
			warnings = append(warnings, fmt.Sprintf("source %s failed: %v", res.ref, res.err))
			continue
		}
		if strings.TrimSpace(res.text) == "" {
			warnings = append(warnings, fmt.Sprintf("source %s yielded no text", res.ref))
			continue
		}
		texts = append(texts, res.text)
	}
	return texts, warnings
}

// ApplyProposal moves a reviewed proposal into the live catalog. Applying an
// already applied proposal is a no-op; a rejected one can never be applied.
func (r *Runner) ApplyProposal(ctx context.Context, tenantId string, proposalId string) (ingestjob.IngestProposal, error) {
	proposal, err := r.store.GetProposal(ctx, tenantId, proposalId)
	if err != nil {
		return ingestjob.IngestProposal{}, err
	}
	if proposal.Status == ingestjob.ProposalApplied {
		return proposal, nil
	}
	if proposal.Status != ingestjob.ProposalProposed {
		return proposal, ErrProposalNotReviewable
	}

	job, err := r.store.GetIngestJob(ctx, tenantId, proposal.JobId)
	if err != nil {
		return proposal, err
	}

	items := make([]ingestjob.CatalogItem, len(proposal.Items))
	for i, item := range proposal.Items {
		items[i] = ingestjob.CatalogItem{Id: item.DeterministicId(proposal.Kind), ExtractedItem: item}
	}

	proposal.Status = ingestjob.ProposalApplied
	job.Status = ingestjob.JobApplied
	job.UpdatedTime = time.Now()

	if err := r.store.ApplyProposal(ctx, proposal, job, items); err != nil {
		return proposal, err
	}

	r.logger.Info("proposal applied", "traceId", ctx.Value(config.TRACE_ID_KEY),
		"proposalId", proposal.Id, "items", len(items))
	return proposal, nil
}

// RejectProposal closes the review with a reason. The job fails and its
// idempotency key frees up for a corrected resubmission.
func (r *Runner) RejectProposal(ctx context.Context, tenantId string, proposalId string, reason string) (ingestjob.IngestProposal, error) {
	proposal, err := r.store.GetProposal(ctx, tenantId, proposalId)
	if err != nil {
		return ingestjob.IngestProposal{}, err
	}
	if proposal.Status != ingestjob.ProposalProposed {
		return proposal, ErrProposalNotReviewable
	}

	job, err := r.store.GetIngestJob(ctx, tenantId, proposal.JobId)
	if err != nil {
		return proposal, err
	}

	proposal.Status = ingestjob.ProposalRejected
	if err := r.store.SaveProposal(ctx, proposal); err != nil {
		return proposal, err
	}

	if reason == "" {
		reason = "proposal rejected by reviewer"
	}
	if _, err := r.failJob(ctx, job, reason); err != nil {
		return proposal, err
	}
	return proposal, nil
}

func (r *Runner) failJob(ctx context.Context, job ingestjob.IngestJob, reason string) (ingestjob.IngestJob, error) {
	r.logger.Error("catalog job failed", "traceId", ctx.Value(config.TRACE_ID_KEY),
		"jobId", job.Id, "reason", reason)

	job.Status = ingestjob.JobFailed
	job.Error = reason
	job.UpdatedTime = time.Now()
	if err := r.store.SaveIngestJob(ctx, job); err != nil {
		return job, err
	}
	return job, nil
}
