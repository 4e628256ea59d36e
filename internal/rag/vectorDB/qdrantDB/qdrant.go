package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
	"github.com/svemana/KnowledgeAPI/internal/rag/vectorDB"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)

type ClientHolder struct {
	QObj *qdrant.Client
}

func GetQuadrantClient(ctx context.Context) *ClientHolder {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient()
		if res != nil {
			quadrantInstance = res
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj: quadrantInstance,
	}
}

func newClient() *qdrant.Client {
	host := os.Getenv("QDRANT_HOST")
	port, er := strconv.Atoi(os.Getenv("QDRANT_PORT"))

	if host == "" || er != nil {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}
	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

// EnsureCollections creates the chunk and answer-cache collections when absent.
func (db *ClientHolder) EnsureCollections(ctx context.Context) error {
	if err := createCollection(ctx, db.QObj, config.ChunkCollectionName); err != nil {
		return err
	}
	return createCollection(ctx, db.QObj, config.AnswerCacheCollectionName)
}

// tenantFilter is the must-clause every read and write carries. Status is part
// of the filter on reads so disabled documents drop out of retrieval without
// their points being deleted.
func tenantFilter(tenantId string, activeOnly bool) *qdrant.Filter {
	must := []*qdrant.Condition{
		qdrant.NewMatch("tenant_id", tenantId),
	}
	if activeOnly {
		must = append(must, qdrant.NewMatch("status", string(knowledge.ChunkStatusActive)))
	}
	return &qdrant.Filter{Must: must}
}

func documentFilter(tenantId string, documentId string) *qdrant.Filter {
	return &qdrant.Filter{Must: []*qdrant.Condition{
		qdrant.NewMatch("tenant_id", tenantId),
		qdrant.NewMatch("document_id", documentId),
	}}
}

func (db *ClientHolder) Search(ctx context.Context, tenantId string, queryVector []float32, limit uint64) ([]vectorDB.SearchHit, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: config.ChunkCollectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         tenantFilter(tenantId, true),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	hits := make([]vectorDB.SearchHit, 0, len(result))
	for _, hit := range result {
		hits = append(hits, vectorDB.SearchHit{
			DocumentId:   hit.Payload["document_id"].GetStringValue(),
			DocumentName: hit.Payload["document_name"].GetStringValue(),
			ChunkId:      hit.Payload["chunk_id"].GetStringValue(),
			Text:         hit.Payload["content"].GetStringValue(),
			Score:        hit.Score,
		})
	}

	loggr.Debug("search done", "hits", len(hits))
	return hits, nil
}

func (db *ClientHolder) UpsertChunks(ctx context.Context, doc knowledge.KnowledgeDocument, chunks []knowledge.KnowledgeChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		pointId := knowledge.ChunkPointID(chunk.TenantId, chunk.ContentHash)
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointId),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"tenant_id":     chunk.TenantId,
				"document_id":   chunk.DocumentId,
				"document_name": doc.Name,
				"chunk_id":      pointId,
				"chunk_index":   int64(chunk.Index),
				"content":       chunk.Text,
				"content_hash":  chunk.ContentHash,
				"status":        string(chunk.Status),
				"ingested_at":   time.Now().Unix(),
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: config.ChunkCollectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// CountActiveChunks backs the per-tenant cap check. excludeDocumentId carves
// out the document being re-ingested so replacing a document never counts its
// own previous chunks against the tenant.
func (db *ClientHolder) CountActiveChunks(ctx context.Context, tenantId string, excludeDocumentId string) (uint64, error) {
	filter := tenantFilter(tenantId, true)
	if excludeDocumentId != "" {
		filter.MustNot = []*qdrant.Condition{
			qdrant.NewMatch("document_id", excludeDocumentId),
		}
	}

	count, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: config.ChunkCollectionName,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return count, nil
}

func (db *ClientHolder) SetDocumentChunkStatus(ctx context.Context, tenantId string, documentId string, status knowledge.ChunkStatus) error {
	_, err := db.QObj.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: config.ChunkCollectionName,
		Payload:        qdrant.NewValueMap(map[string]any{"status": string(status)}),
		PointsSelector: qdrant.NewPointsSelectorFilter(documentFilter(tenantId, documentId)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant set payload failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) DeleteDocumentChunks(ctx context.Context, tenantId string, documentId string) error {
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: config.ChunkCollectionName,
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(tenantId, documentId)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return err
}
