package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/data/redisStore"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var ErrDocumentNotFound = errors.New("document not found")

// RedisDocumentStore keeps document records under doc:<tenant>:<id> plus a
// per-tenant id set for listing. Records have no TTL; documents live until
// deleted.
type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisDocumentStore(ctx context.Context) *RedisDocumentStore {
	kv := redisStore.GetRedisStore(ctx, config.RedisDocumentStore)
	if kv == nil {
		return nil
	}
	return &RedisDocumentStore{
		store:  kv,
		logger: logger_i.NewLogger("DocumentStore"),
	}
}

func docKey(tenantId string, id string) string {
	return "doc:" + tenantId + ":" + id
}

func docIndexKey(tenantId string) string {
	return "docs:" + tenantId
}

func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc knowledge.KnowledgeDocument) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", doc.Id)

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, docKey(doc.TenantId, doc.Id), data, 0); err != nil {
		return err
	}
	if err := s.store.SetAdd(ctx, docIndexKey(doc.TenantId), doc.Id); err != nil {
		return err
	}
	log.Debug("saved document", "status", doc.Status)
	return nil
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, tenantId string, id string) (knowledge.KnowledgeDocument, error) {
	var doc knowledge.KnowledgeDocument

	val, err := s.store.Get(ctx, docKey(tenantId, id))
	if s.store.IsNil(err) {
		return doc, ErrDocumentNotFound
	}
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func (s *RedisDocumentStore) ListDocuments(ctx context.Context, tenantId string) ([]knowledge.KnowledgeDocument, error) {
	ids, err := s.store.SetMembers(ctx, docIndexKey(tenantId))
	if err != nil {
		return nil, err
	}

	docs := make([]knowledge.KnowledgeDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := s.GetDocument(ctx, tenantId, id)
		if errors.Is(err, ErrDocumentNotFound) {
			//index entry outlived the record, drop it
			_ = s.store.SetRemove(ctx, docIndexKey(tenantId), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *RedisDocumentStore) DeleteDocument(ctx context.Context, tenantId string, id string) error {
	if err := s.store.Del(ctx, docKey(tenantId, id)); err != nil {
		return err
	}
	return s.store.SetRemove(ctx, docIndexKey(tenantId), id)
}

func TestDocumentStore(store *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{
		store:  store,
		logger: logger_i.NewLogger("test document store"),
	}
}
