package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/data/redisStore"
	"github.com/svemana/KnowledgeAPI/internal/domain/ingestjob"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var (
	ErrIngestJobNotFound = errors.New("ingest job not found")
	ErrProposalNotFound  = errors.New("proposal not found")
)

// RedisCatalogStore persists catalog ingest jobs, their proposals, the applied
// items, and the idempotency reservations tying them together.
type RedisCatalogStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisCatalogStore(ctx context.Context) *RedisCatalogStore {
	kv := redisStore.GetRedisStore(ctx, config.RedisCatalogStore)
	if kv == nil {
		return nil
	}
	return &RedisCatalogStore{
		store:  kv,
		logger: logger_i.NewLogger("CatalogStore"),
	}
}

func ingestJobKey(tenantId string, id string) string {
	return "cjob:" + tenantId + ":" + id
}

func proposalKey(tenantId string, id string) string {
	return "prop:" + tenantId + ":" + id
}

func idempotencyKey(tenantId string, key string) string {
	return "idem:" + tenantId + ":" + key
}

func itemsKey(tenantId string, targetId string) string {
	return "items:" + tenantId + ":" + targetId
}

func (s *RedisCatalogStore) SaveIngestJob(ctx context.Context, job ingestjob.IngestJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, ingestJobKey(job.TenantId, job.Id), data, 0)
}

func (s *RedisCatalogStore) GetIngestJob(ctx context.Context, tenantId string, id string) (ingestjob.IngestJob, error) {
	var job ingestjob.IngestJob

	val, err := s.store.Get(ctx, ingestJobKey(tenantId, id))
	if s.store.IsNil(err) {
		return job, ErrIngestJobNotFound
	}
	if err != nil {
		return job, err
	}
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return job, err
	}
	return job, nil
}

// ReserveIdempotencyKey claims key for jobId. When the key is already held the
// holder's job id comes back with reserved false, so the caller can return the
// original job instead of starting a duplicate.
func (s *RedisCatalogStore) ReserveIdempotencyKey(ctx context.Context, tenantId string, key string, jobId string) (string, bool, error) {
	reserved, err := s.store.SetNX(ctx, idempotencyKey(tenantId, key), jobId, config.RedisIdempotencyTTL)
	if err != nil {
		return "", false, err
	}
	if reserved {
		return jobId, true, nil
	}

	existing, err := s.store.Get(ctx, idempotencyKey(tenantId, key))
	if s.store.IsNil(err) {
		//holder expired between SetNX and Get, try once more
		return s.ReserveIdempotencyKey(ctx, tenantId, key, jobId)
	}
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

func (s *RedisCatalogStore) ReleaseIdempotencyKey(ctx context.Context, tenantId string, key string) error {
	return s.store.Del(ctx, idempotencyKey(tenantId, key))
}

func (s *RedisCatalogStore) SaveProposal(ctx context.Context, proposal ingestjob.IngestProposal) error {
	data, err := json.Marshal(proposal)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, proposalKey(proposal.TenantId, proposal.Id), data, 0)
}

func (s *RedisCatalogStore) GetProposal(ctx context.Context, tenantId string, id string) (ingestjob.IngestProposal, error) {
	var proposal ingestjob.IngestProposal

	val, err := s.store.Get(ctx, proposalKey(tenantId, id))
	if s.store.IsNil(err) {
		return proposal, ErrProposalNotFound
	}
	if err != nil {
		return proposal, err
	}
	if err := json.Unmarshal([]byte(val), &proposal); err != nil {
		return proposal, err
	}
	return proposal, nil
}

// ApplyProposal writes the items, the applied proposal and the applied job in
// one atomic batch. Either the catalog gains every item and both records flip
// to applied, or nothing changes.
func (s *RedisCatalogStore) ApplyProposal(ctx context.Context, proposal ingestjob.IngestProposal, job ingestjob.IngestJob, items []ingestjob.CatalogItem) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "proposalId", proposal.Id)

	proposalData, err := json.Marshal(proposal)
	if err != nil {
		return err
	}
	jobData, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, item := range items {
			itemData, err := json.Marshal(item)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, itemsKey(proposal.TenantId, proposal.TargetId), item.Id, itemData)
		}
		pipe.Set(ctx, proposalKey(proposal.TenantId, proposal.Id), proposalData, 0)
		pipe.Set(ctx, ingestJobKey(job.TenantId, job.Id), jobData, 0)
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("proposal applied", "items", len(items))
	return nil
}

func (s *RedisCatalogStore) ListItems(ctx context.Context, tenantId string, targetId string) ([]ingestjob.CatalogItem, error) {
	raw, err := s.store.HashGetAll(ctx, itemsKey(tenantId, targetId))
	if err != nil {
		return nil, err
	}

	items := make([]ingestjob.CatalogItem, 0, len(raw))
	for _, val := range raw {
		var item ingestjob.CatalogItem
		if err := json.Unmarshal([]byte(val), &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func TestCatalogStore(store *redisStore.Store) *RedisCatalogStore {
	return &RedisCatalogStore{
		store:  store,
		logger: logger_i.NewLogger("test catalog store"),
	}
}
