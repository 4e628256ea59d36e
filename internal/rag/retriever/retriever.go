package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/rag/embedding"
	"github.com/svemana/KnowledgeAPI/internal/rag/vectorDB"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

// Result is the assembled retrieval context for one question. HasContext false
// means the answer should say so instead of grounding on nothing.
type Result struct {
	ContextBlock string
	Sources      []string
	Chunks       []vectorDB.SearchHit
	HasContext   bool
}

type Retriever struct {
	embedder embedding.Embedder
	vector   vectorDB.DataProcessor
	logger   *logger_i.Logger
}

func NewRetriever(embedder embedding.Embedder, vector vectorDB.DataProcessor) *Retriever {
	return &Retriever{
		embedder: embedder,
		vector:   vector,
		logger:   logger_i.NewLogger("Retriever"),
	}
}

// Retrieve embeds the question and selects context chunks: closest first, at
// most DiversityCapPerDoc per document, relevance-thresholded. When the
// threshold empties the set entirely the diversified set stands as the
// fallback, so a tenant with only weak matches still gets grounded context.
func (r *Retriever) Retrieve(ctx context.Context, tenantId string, question string) (Result, error) {
	queryVector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return Result{}, err
	}
	return r.RetrieveWithVector(ctx, tenantId, queryVector)
}

// RetrieveWithVector runs selection against an already computed question
// embedding, so callers that embedded once for the answer cache do not pay
// for a second embedding call.
func (r *Retriever) RetrieveWithVector(ctx context.Context, tenantId string, queryVector []float32) (Result, error) {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "tenantId", tenantId)

	hits, err := r.vector.Search(ctx, tenantId, queryVector, config.RetrievalBatchSize)
	if err != nil {
		return Result{}, err
	}
	if len(hits) == 0 {
		log.Debug("no matches for question")
		return Result{}, nil
	}

	selected := Select(hits)
	log.Debug("retrieval done", "candidates", len(hits), "selected", len(selected))
	return assemble(selected), nil
}

// QueryVectorFor exposes the question embedding for answer-cache lookups.
func (r *Retriever) QueryVectorFor(ctx context.Context, question string) ([]float32, error) {
	return r.embedder.EmbedQuery(ctx, question)
}

// Select applies the ordering rules to raw store hits. Exported separately so
// the selection semantics can be exercised without a store.
func Select(hits []vectorDB.SearchHit) []vectorDB.SearchHit {
	ordered := make([]vectorDB.SearchHit, len(hits))
	copy(ordered, hits)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Score > ordered[j].Score })

	//diversity cap first, threshold second: the cap reshapes the candidate
	//pool, the threshold only prunes it
	perDoc := map[string]int{}
	diversified := make([]vectorDB.SearchHit, 0, len(ordered))
	for _, hit := range ordered {
		if perDoc[hit.DocumentId] >= config.DiversityCapPerDoc {
			continue
		}
		perDoc[hit.DocumentId]++
		diversified = append(diversified, hit)
	}

	relevant := make([]vectorDB.SearchHit, 0, len(diversified))
	for _, hit := range diversified {
		if distance(hit.Score) <= config.DistanceThreshold {
			relevant = append(relevant, hit)
		}
	}
	if len(relevant) == 0 {
		relevant = diversified
	}

	if len(relevant) > config.ContextChunkLimit {
		relevant = relevant[:config.ContextChunkLimit]
	}
	return relevant
}

// distance converts the store's cosine similarity to cosine distance.
func distance(score float32) float32 {
	return 1 - score
}

func assemble(selected []vectorDB.SearchHit) Result {
	if len(selected) == 0 {
		return Result{}
	}

	var block strings.Builder
	seenSources := map[string]bool{}
	var sources []string

	for i, hit := range selected {
		fmt.Fprintf(&block, "[%d] %s\n", i+1, hit.Text)
		name := hit.DocumentName
		if name == "" {
			name = hit.DocumentId
		}
		if !seenSources[name] {
			seenSources[name] = true
			sources = append(sources, name)
		}
	}

	return Result{
		ContextBlock: strings.TrimSpace(block.String()),
		Sources:      sources,
		Chunks:       selected,
		HasContext:   true,
	}
}
