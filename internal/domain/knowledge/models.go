package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

type SourceKind string
type DocumentStatus string
type ChunkStatus string

const (
	KindText  SourceKind = "text"
	KindURL   SourceKind = "url"
	KindPDF   SourceKind = "pdf"
	KindImage SourceKind = "image"
	KindFile  SourceKind = "file"

	DocStatusProcessing DocumentStatus = "processing"
	DocStatusActive     DocumentStatus = "active"
	DocStatusFailed     DocumentStatus = "failed"
	DocStatusDisabled   DocumentStatus = "disabled"

	ChunkStatusActive   ChunkStatus = "active"
	ChunkStatusDisabled ChunkStatus = "disabled"
)

var ErrMissingSourceField = errors.New("missing source field for document kind")

// chunkNamespace keys the UUIDv5 derivation of chunk point ids. Never change it:
// a new namespace would break write idempotency for already stored chunks.
var chunkNamespace = uuid.MustParse("7a1d3f60-9c1b-4f1e-8b21-d6e1f0a54c7d")

type DocumentError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type KnowledgeDocument struct {
	Id       string     `json:"id"`
	TenantId string     `json:"tenant_id"`
	Name     string     `json:"name"`
	Kind     SourceKind `json:"kind"`

	//exactly one of these is set, depending on Kind
	SourceText  string `json:"source_text,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	StoragePath string `json:"storage_path,omitempty"`

	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	ContentHash string         `json:"content_hash,omitempty"`
	PageCount   int            `json:"page_count,omitempty"`
	MimeType    string         `json:"mime_type,omitempty"`
	Error       *DocumentError `json:"error,omitempty"`

	CreatedTime time.Time `json:"created_time"`
	UpdatedTime time.Time `json:"updated_time"`
}

type KnowledgeChunk struct {
	DocumentId  string      `json:"document_id"`
	TenantId    string      `json:"tenant_id"`
	Index       int         `json:"index"`
	Text        string      `json:"text"`
	ContentHash string      `json:"content_hash"`
	Status      ChunkStatus `json:"status"`
}

// ValidateSource checks the source field matching the document kind is present.
func (d *KnowledgeDocument) ValidateSource() error {
	switch d.Kind {
	case KindText:
		if d.SourceText == "" {
			return ErrMissingSourceField
		}
	case KindURL:
		if d.SourceURL == "" {
			return ErrMissingSourceField
		}
	case KindPDF, KindImage, KindFile:
		if d.StoragePath == "" {
			return ErrMissingSourceField
		}
	default:
		return errors.New("unknown source kind: " + string(d.Kind))
	}
	return nil
}

func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChunkPointID derives the vector store point id for a chunk. It is a UUIDv5 over
// (tenant, content hash), so re-ingesting identical text upserts the same point.
func ChunkPointID(tenantId string, contentHash string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(tenantId+":"+contentHash)).String()
}
