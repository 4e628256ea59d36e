package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svemana/KnowledgeAPI/internal/domain/ingestjob"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
	"github.com/svemana/KnowledgeAPI/internal/extract"
)

type memStore struct {
	jobs      map[string]ingestjob.IngestJob
	proposals map[string]ingestjob.IngestProposal
	idem      map[string]string
	applied   [][]ingestjob.CatalogItem
}

func newMemStore() *memStore {
	return &memStore{
		jobs:      map[string]ingestjob.IngestJob{},
		proposals: map[string]ingestjob.IngestProposal{},
		idem:      map[string]string{},
	}
}

func (m *memStore) SaveIngestJob(ctx context.Context, job ingestjob.IngestJob) error {
	m.jobs[job.TenantId+"/"+job.Id] = job
	return nil
}

func (m *memStore) GetIngestJob(ctx context.Context, tenantId string, id string) (ingestjob.IngestJob, error) {
	job, ok := m.jobs[tenantId+"/"+id]
	if !ok {
		return job, errors.New("ingest job not found")
	}
	return job, nil
}

func (m *memStore) ReserveIdempotencyKey(ctx context.Context, tenantId string, key string, jobId string) (string, bool, error) {
	full := tenantId + "/" + key
	if holder, ok := m.idem[full]; ok {
		return holder, false, nil
	}
	m.idem[full] = jobId
	return jobId, true, nil
}

func (m *memStore) ReleaseIdempotencyKey(ctx context.Context, tenantId string, key string) error {
	delete(m.idem, tenantId+"/"+key)
	return nil
}

func (m *memStore) SaveProposal(ctx context.Context, proposal ingestjob.IngestProposal) error {
	m.proposals[proposal.TenantId+"/"+proposal.Id] = proposal
	return nil
}

func (m *memStore) GetProposal(ctx context.Context, tenantId string, id string) (ingestjob.IngestProposal, error) {
	proposal, ok := m.proposals[tenantId+"/"+id]
	if !ok {
		return proposal, errors.New("proposal not found")
	}
	return proposal, nil
}

func (m *memStore) ApplyProposal(ctx context.Context, proposal ingestjob.IngestProposal, job ingestjob.IngestJob, items []ingestjob.CatalogItem) error {
	m.proposals[proposal.TenantId+"/"+proposal.Id] = proposal
	m.jobs[job.TenantId+"/"+job.Id] = job
	m.applied = append(m.applied, items)
	return nil
}

type stubExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (s *stubExtractor) ExtractSource(ctx context.Context, src extract.SourceInput) (extract.Extraction, error) {
	ref := src.SourceURL
	if ref == "" {
		ref = src.StoragePath
	}
	if err := s.errs[ref]; err != nil {
		return extract.Extraction{}, err
	}
	return extract.Extraction{Text: s.texts[ref]}, nil
}

type stubGenerator struct {
	items []ingestjob.ExtractedItem
	err   error
	calls int
}

func (s *stubGenerator) GenerateItems(ctx context.Context, kind string, text string) ([]ingestjob.ExtractedItem, error) {
	s.calls++
	return s.items, s.err
}

func urlSource(u string) ingestjob.SourceRef {
	return ingestjob.SourceRef{Kind: knowledge.KindURL, SourceURL: u}
}

func TestSubmitJob_Idempotency(t *testing.T) {
	store := newMemStore()
	r := NewRunner(store, &stubExtractor{}, &stubGenerator{})
	ctx := context.Background()
	sources := []ingestjob.SourceRef{urlSource("https://example.com/menu")}

	first, isNew, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item", sources)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, ingestjob.JobQueued, first.Status)

	// identical submission folds into the running job
	second, isNew, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item", sources)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.Id, second.Id)

	// different sources are a different job
	third, isNew, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item",
		[]ingestjob.SourceRef{urlSource("https://example.com/other")})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, first.Id, third.Id)
}

func TestSubmitJob_TerminalHolderFreesKey(t *testing.T) {
	store := newMemStore()
	r := NewRunner(store, &stubExtractor{}, &stubGenerator{})
	ctx := context.Background()
	sources := []ingestjob.SourceRef{urlSource("https://example.com/menu")}

	first, _, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item", sources)
	require.NoError(t, err)

	first.Status = ingestjob.JobFailed
	require.NoError(t, store.SaveIngestJob(ctx, first))

	second, isNew, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item", sources)
	require.NoError(t, err)
	assert.True(t, isNew, "a failed job must not block resubmission")
	assert.NotEqual(t, first.Id, second.Id)
}

func TestProcessJob_ProducesReviewableProposal(t *testing.T) {
	store := newMemStore()
	extractor := &stubExtractor{texts: map[string]string{
		"https://example.com/menu": "Espresso 3 EUR\nFlat White 4.50 EUR",
	}}
	generator := &stubGenerator{items: []ingestjob.ExtractedItem{
		{Name: "Espresso", Price: 3, HasPrice: true, Currency: "EUR"},
		{Name: "Tap water"},
	}}
	r := NewRunner(store, extractor, generator)
	ctx := context.Background()

	job, _, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item",
		[]ingestjob.SourceRef{urlSource("https://example.com/menu")})
	require.NoError(t, err)

	processed, err := r.ProcessJob(ctx, "tenant-1", job.Id)
	require.NoError(t, err)
	assert.Equal(t, ingestjob.JobNeedsReview, processed.Status)
	require.NotEmpty(t, processed.ProposalId)

	proposal, err := store.GetProposal(ctx, "tenant-1", processed.ProposalId)
	require.NoError(t, err)
	assert.Equal(t, ingestjob.ProposalProposed, proposal.Status)
	assert.Len(t, proposal.Items, 2)

	// the priceless item must be flagged, not silently accepted
	require.Len(t, proposal.Warnings, 1)
	assert.Contains(t, proposal.Warnings[0], "Tap water")

	// nothing reaches the catalog before review
	assert.Empty(t, store.applied)
}

func TestProcessJob_RedeliveryIsNoop(t *testing.T) {
	store := newMemStore()
	generator := &stubGenerator{items: []ingestjob.ExtractedItem{{Name: "Espresso", Price: 3, HasPrice: true}}}
	extractor := &stubExtractor{texts: map[string]string{"https://example.com/menu": "Espresso 3"}}
	r := NewRunner(store, extractor, generator)
	ctx := context.Background()

	job, _, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item",
		[]ingestjob.SourceRef{urlSource("https://example.com/menu")})
	require.NoError(t, err)

	_, err = r.ProcessJob(ctx, "tenant-1", job.Id)
	require.NoError(t, err)
	_, err = r.ProcessJob(ctx, "tenant-1", job.Id)
	require.NoError(t, err)

	assert.Equal(t, 1, generator.calls, "redelivered job must not regenerate")
}

func TestProcessJob_PartialSourceFailure(t *testing.T) {
	store := newMemStore()
	extractor := &stubExtractor{
		texts: map[string]string{"https://example.com/menu": "Espresso 3 EUR"},
		errs:  map[string]error{"https://example.com/blocked": errors.New("blocked_403")},
	}
	generator := &stubGenerator{items: []ingestjob.ExtractedItem{{Name: "Espresso", Price: 3, HasPrice: true}}}
	r := NewRunner(store, extractor, generator)
	ctx := context.Background()

	job, _, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item",
		[]ingestjob.SourceRef{urlSource("https://example.com/menu"), urlSource("https://example.com/blocked")})
	require.NoError(t, err)

	processed, err := r.ProcessJob(ctx, "tenant-1", job.Id)
	require.NoError(t, err)
	assert.Equal(t, ingestjob.JobNeedsReview, processed.Status)

	proposal, err := store.GetProposal(ctx, "tenant-1", processed.ProposalId)
	require.NoError(t, err)
	found := false
	for _, w := range proposal.Warnings {
		if strings.Contains(w, "blocked") {
			found = true
		}
	}
	assert.True(t, found, "failed source must surface as a warning: %v", proposal.Warnings)
}

func TestProcessJob_AllSourcesFail(t *testing.T) {
	store := newMemStore()
	extractor := &stubExtractor{errs: map[string]error{"https://example.com/menu": errors.New("timeout")}}
	generator := &stubGenerator{}
	r := NewRunner(store, extractor, generator)
	ctx := context.Background()

	job, _, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item",
		[]ingestjob.SourceRef{urlSource("https://example.com/menu")})
	require.NoError(t, err)

	processed, err := r.ProcessJob(ctx, "tenant-1", job.Id)
	require.NoError(t, err)
	assert.Equal(t, ingestjob.JobFailed, processed.Status)
	assert.NotEmpty(t, processed.Error)
	assert.Equal(t, 0, generator.calls)
	assert.Empty(t, processed.ProposalId)
}

func TestApplyProposal_Lifecycle(t *testing.T) {
	store := newMemStore()
	extractor := &stubExtractor{texts: map[string]string{"https://example.com/menu": "Espresso 3 EUR"}}
	generator := &stubGenerator{items: []ingestjob.ExtractedItem{{Name: "Espresso", Price: 3, HasPrice: true, Currency: "EUR"}}}
	r := NewRunner(store, extractor, generator)
	ctx := context.Background()

	job, _, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item",
		[]ingestjob.SourceRef{urlSource("https://example.com/menu")})
	require.NoError(t, err)
	processed, err := r.ProcessJob(ctx, "tenant-1", job.Id)
	require.NoError(t, err)

	applied, err := r.ApplyProposal(ctx, "tenant-1", processed.ProposalId)
	require.NoError(t, err)
	assert.Equal(t, ingestjob.ProposalApplied, applied.Status)

	gotJob, err := store.GetIngestJob(ctx, "tenant-1", job.Id)
	require.NoError(t, err)
	assert.Equal(t, ingestjob.JobApplied, gotJob.Status)

	require.Len(t, store.applied, 1)
	assert.Equal(t, generator.items[0].DeterministicId("menu_item"), store.applied[0][0].Id)

	// applying again is a no-op, not a second catalog write
	_, err = r.ApplyProposal(ctx, "tenant-1", processed.ProposalId)
	require.NoError(t, err)
	assert.Len(t, store.applied, 1)
}

func TestRejectProposal(t *testing.T) {
	store := newMemStore()
	extractor := &stubExtractor{texts: map[string]string{"https://example.com/menu": "Espresso 3 EUR"}}
	generator := &stubGenerator{items: []ingestjob.ExtractedItem{{Name: "Espresso", Price: 3, HasPrice: true}}}
	r := NewRunner(store, extractor, generator)
	ctx := context.Background()

	job, _, err := r.SubmitJob(ctx, "tenant-1", "menu-main", "menu_item",
		[]ingestjob.SourceRef{urlSource("https://example.com/menu")})
	require.NoError(t, err)
	processed, err := r.ProcessJob(ctx, "tenant-1", job.Id)
	require.NoError(t, err)

	rejected, err := r.RejectProposal(ctx, "tenant-1", processed.ProposalId, "prices look stale")
	require.NoError(t, err)
	assert.Equal(t, ingestjob.ProposalRejected, rejected.Status)

	gotJob, err := store.GetIngestJob(ctx, "tenant-1", job.Id)
	require.NoError(t, err)
	assert.Equal(t, ingestjob.JobFailed, gotJob.Status)
	assert.Equal(t, "prices look stale", gotJob.Error)
	assert.Empty(t, store.applied)

	// a rejected proposal can never be applied
	_, err = r.ApplyProposal(ctx, "tenant-1", processed.ProposalId)
	assert.ErrorIs(t, err, ErrProposalNotReviewable)
}
