package ingestjob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
)

type JobStatus string
type ProposalStatus string

const (
	JobQueued      JobStatus = "queued"
	JobProcessing  JobStatus = "processing"
	JobNeedsReview JobStatus = "needs_review"
	JobApplied     JobStatus = "applied"
	JobFailed      JobStatus = "failed"

	ProposalProposed ProposalStatus = "proposed"
	ProposalApplied  ProposalStatus = "applied"
	ProposalRejected ProposalStatus = "rejected"
)

var itemNamespace = uuid.MustParse("33d9f1ab-2c70-45d2-9f0e-6b8a0c1e2d4f")

// SourceRef points at one external source of a catalog job. URL sources carry
// SourceURL, uploaded pdf/image sources carry StoragePath.
type SourceRef struct {
	Kind        knowledge.SourceKind `json:"kind"`
	SourceURL   string               `json:"source_url,omitempty"`
	StoragePath string               `json:"storage_path,omitempty"`
}

func (s SourceRef) Ref() string {
	if s.SourceURL != "" {
		return s.SourceURL
	}
	return s.StoragePath
}

type IngestJob struct {
	Id             string      `json:"id"`
	TenantId       string      `json:"tenant_id"`
	TargetId       string      `json:"target_id"`
	Kind           string      `json:"kind"`
	Sources        []SourceRef `json:"sources"`
	IdempotencyKey string      `json:"idempotency_key"`
	Status         JobStatus   `json:"status"`
	ProposalId     string      `json:"proposal_id,omitempty"`
	Error          string      `json:"error,omitempty"`
	CreatedTime    time.Time   `json:"created_time"`
	UpdatedTime    time.Time   `json:"updated_time"`
}

// Terminal reports whether the job can never transition again. A terminal job's
// idempotency key is free for reuse by a fresh submission.
func (j *IngestJob) Terminal() bool {
	return j.Status == JobApplied || j.Status == JobFailed
}

// Key computes the idempotency key over (tenant, target, kind, ordered sources).
func Key(tenantId, targetId, kind string, sources []SourceRef) string {
	var b strings.Builder
	b.WriteString(tenantId)
	b.WriteByte('|')
	b.WriteString(targetId)
	b.WriteByte('|')
	b.WriteString(kind)
	for _, s := range sources {
		b.WriteByte('|')
		b.WriteString(string(s.Kind))
		b.WriteByte(':')
		b.WriteString(s.Ref())
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

type ExtractedItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	HasPrice    bool    `json:"has_price"`
	Currency    string  `json:"currency,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// DeterministicId derives a stable item id so re-applying a proposal upserts
// rather than duplicates.
func (it ExtractedItem) DeterministicId(kind string) string {
	seed := fmt.Sprintf("%s|%s|%.2f|%s|%s", kind, it.Name, it.Price, it.Currency, it.Category)
	return uuid.NewSHA1(itemNamespace, []byte(seed)).String()
}

// CatalogItem is an applied item as it sits in the catalog, keyed by its
// deterministic id.
type CatalogItem struct {
	Id string `json:"id"`
	ExtractedItem
}

type IngestProposal struct {
	Id          string          `json:"id"`
	TenantId    string          `json:"tenant_id"`
	JobId       string          `json:"job_id"`
	TargetId    string          `json:"target_id"`
	Kind        string          `json:"kind"`
	Items       []ExtractedItem `json:"items"`
	Warnings    []string        `json:"warnings,omitempty"`
	Status      ProposalStatus  `json:"status"`
	CreatedTime time.Time       `json:"created_time"`
}
