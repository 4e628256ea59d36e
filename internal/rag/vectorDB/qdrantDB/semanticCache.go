package qdrantDB

import (
	"context"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/svemana/KnowledgeAPI/internal/config"
)

// GetCachedAnswer looks for a semantically close earlier question from the
// same tenant. The cutoff is deliberately strict: serving a cached answer to
// a merely related question is worse than recomputing.
func (db *ClientHolder) GetCachedAnswer(ctx context.Context, tenantId string, queryVector []float32) (string, bool, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	searchResult, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: config.AnswerCacheCollectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         tenantFilter(tenantId, false),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Cache Query failed", "error", err)
		return "", false, err
	}
	if len(searchResult) == 0 {
		return "", false, nil
	}

	loggr.Debug("Found cached candidate", "score", searchResult[0].Score)
	if searchResult[0].Score < config.CacheSimilarityCutoff {
		return "", false, nil
	}

	answer := searchResult[0].Payload["answer"].GetStringValue()
	return answer, true, nil
}

func (db *ClientHolder) SaveToCache(ctx context.Context, tenantId string, id string, vector []float32, question string, answer string) error {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	loggr.Debug("Saving answer to cache")
	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: config.AnswerCacheCollectionName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"tenant_id": tenantId,
					"question":  question,
					"answer":    answer,
					"timestamp": time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		loggr.Error("Saving answer to cache failed", "error", err)
	}
	return err
}
