package store_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svemana/KnowledgeAPI/internal/data/redisStore"
	"github.com/svemana/KnowledgeAPI/internal/data/store"
	"github.com/svemana/KnowledgeAPI/internal/domain/ingestjob"
)

func newCatalogStore(t *testing.T) *store.RedisCatalogStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.TestCatalogStore(redisStore.NewTestStore(client))
}

func TestCatalogStore_JobRoundtrip(t *testing.T) {
	cs := newCatalogStore(t)
	ctx := context.Background()

	job := ingestjob.IngestJob{
		Id:       "job-1",
		TenantId: "tenant-1",
		TargetId: "menu-main",
		Kind:     "menu_item",
		Status:   ingestjob.JobQueued,
		Sources: []ingestjob.SourceRef{
			{Kind: "url", SourceURL: "https://example.com/menu"},
		},
	}

	require.NoError(t, cs.SaveIngestJob(ctx, job))

	got, err := cs.GetIngestJob(ctx, "tenant-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, ingestjob.JobQueued, got.Status)
	assert.Len(t, got.Sources, 1)

	_, err = cs.GetIngestJob(ctx, "tenant-2", "job-1")
	assert.ErrorIs(t, err, store.ErrIngestJobNotFound)
}

func TestCatalogStore_IdempotencyReservation(t *testing.T) {
	cs := newCatalogStore(t)
	ctx := context.Background()
	key := ingestjob.Key("tenant-1", "menu-main", "menu_item", nil)

	holder, reserved, err := cs.ReserveIdempotencyKey(ctx, "tenant-1", key, "job-1")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, "job-1", holder)

	// second submission with the same key gets the original job back
	holder, reserved, err = cs.ReserveIdempotencyKey(ctx, "tenant-1", key, "job-2")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, "job-1", holder)

	// the same key under another tenant is free
	_, reserved, err = cs.ReserveIdempotencyKey(ctx, "tenant-2", key, "job-3")
	require.NoError(t, err)
	assert.True(t, reserved)

	// releasing frees the key for a fresh submission
	require.NoError(t, cs.ReleaseIdempotencyKey(ctx, "tenant-1", key))
	holder, reserved, err = cs.ReserveIdempotencyKey(ctx, "tenant-1", key, "job-4")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, "job-4", holder)
}

func TestCatalogStore_ApplyProposalAtomic(t *testing.T) {
	cs := newCatalogStore(t)
	ctx := context.Background()

	items := []ingestjob.CatalogItem{
		{Id: "item-1", ExtractedItem: ingestjob.ExtractedItem{Name: "Espresso", Price: 3, HasPrice: true, Currency: "EUR"}},
		{Id: "item-2", ExtractedItem: ingestjob.ExtractedItem{Name: "Flat White", Price: 4.5, HasPrice: true, Currency: "EUR"}},
	}
	proposal := ingestjob.IngestProposal{
		Id:       "prop-1",
		TenantId: "tenant-1",
		JobId:    "job-1",
		TargetId: "menu-main",
		Kind:     "menu_item",
		Status:   ingestjob.ProposalApplied,
	}
	job := ingestjob.IngestJob{
		Id:       "job-1",
		TenantId: "tenant-1",
		TargetId: "menu-main",
		Status:   ingestjob.JobApplied,
	}

	require.NoError(t, cs.ApplyProposal(ctx, proposal, job, items))

	stored, err := cs.ListItems(ctx, "tenant-1", "menu-main")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	gotJob, err := cs.GetIngestJob(ctx, "tenant-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, ingestjob.JobApplied, gotJob.Status)

	gotProposal, err := cs.GetProposal(ctx, "tenant-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, ingestjob.ProposalApplied, gotProposal.Status)
}

func TestCatalogStore_ReapplySameItemsUpserts(t *testing.T) {
	cs := newCatalogStore(t)
	ctx := context.Background()

	item := ingestjob.ExtractedItem{Name: "Espresso", Price: 3, HasPrice: true, Currency: "EUR"}
	catalogItem := ingestjob.CatalogItem{Id: item.DeterministicId("menu_item"), ExtractedItem: item}

	proposal := ingestjob.IngestProposal{Id: "prop-1", TenantId: "tenant-1", TargetId: "menu-main", Status: ingestjob.ProposalApplied}
	job := ingestjob.IngestJob{Id: "job-1", TenantId: "tenant-1", Status: ingestjob.JobApplied}

	require.NoError(t, cs.ApplyProposal(ctx, proposal, job, []ingestjob.CatalogItem{catalogItem}))
	require.NoError(t, cs.ApplyProposal(ctx, proposal, job, []ingestjob.CatalogItem{catalogItem}))

	stored, err := cs.ListItems(ctx, "tenant-1", "menu-main")
	require.NoError(t, err)
	assert.Len(t, stored, 1, "identical item must upsert, not duplicate")
}
