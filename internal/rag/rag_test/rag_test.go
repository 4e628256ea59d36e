package rag_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
	"github.com/svemana/KnowledgeAPI/internal/rag"
	"github.com/svemana/KnowledgeAPI/internal/rag/vectorDB"
)

func TestProcessQuestion_Scenarios(t *testing.T) {
	tests := []struct {
		name            string
		setupMocks      func(e *MockEmbedder, v *MockVectorDB, l *MockLLM)
		expectedStatus  jobModel.JobStatus
		expectedAnswer  string
		wantHasContext  bool
		wantSources     int
		wantErrorStatus bool
	}{
		{
			name: "Success_Full_Flow",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				l.OnGenerate = func(ctx context.Context, q string, block string) (string, error) {
					if block == "" {
						t.Errorf("generation called without context block")
					}
					return "final answer", nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: "final answer",
			wantHasContext: true,
			wantSources:    1,
		},
		{
			name: "Success_Cache_Hit",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				v.OnGetCachedAnswer = func(ctx context.Context, tenantId string, emb []float32) (string, bool, error) {
					return "cached answer", true, nil
				}
				l.OnGenerate = func(ctx context.Context, q string, block string) (string, error) {
					t.Errorf("generation must not run on a cache hit")
					return "", nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			expectedAnswer: "cached answer",
			wantHasContext: true,
		},
		{
			name: "No_Context_Skips_Generation",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				v.OnSearch = func(ctx context.Context, tenantId string, emb []float32, limit uint64) ([]vectorDB.SearchHit, error) {
					return nil, nil
				}
				l.OnGenerate = func(ctx context.Context, q string, block string) (string, error) {
					t.Errorf("generation must not run without context")
					return "", nil
				}
			},
			expectedStatus: jobModel.JobStatusComplete,
			wantHasContext: false,
		},
		{
			name: "Failure_Embedding",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				e.OnEmbedQuery = func(ctx context.Context, text string) ([]float32, error) {
					return nil, errors.New("api limit")
				}
			},
			expectedStatus:  jobModel.JobStatusError,
			wantErrorStatus: true,
		},
		{
			name: "Failure_Vector_Search",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				v.OnSearch = func(ctx context.Context, tenantId string, emb []float32, limit uint64) ([]vectorDB.SearchHit, error) {
					return nil, errors.New("db timeout")
				}
			},
			expectedStatus:  jobModel.JobStatusError,
			wantErrorStatus: true,
		},
		{
			name: "Failure_LLM_Generation",
			setupMocks: func(e *MockEmbedder, v *MockVectorDB, l *MockLLM) {
				l.OnGenerate = func(ctx context.Context, q string, block string) (string, error) {
					return "", errors.New("provider down")
				}
			},
			expectedStatus:  jobModel.JobStatusError,
			wantErrorStatus: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mEmbed := &MockEmbedder{}
			mVec := &MockVectorDB{}
			mLLM := &MockLLM{}

			tt.setupMocks(mEmbed, mVec, mLLM)

			s := rag.NewService(mVec, mLLM, mEmbed, &MockIngestor{}, &MockDocStore{})

			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
			job := jobModel.Job{
				Id:       "test-job",
				TenantId: "tenant-1",
				JobPayload: jobModel.JobPayload{
					Question: "test question",
				},
			}

			result := s.ProcessQuestion(ctx, job)

			if result.Status != tt.expectedStatus {
				t.Errorf("Status got %v, want %v", result.Status, tt.expectedStatus)
			}
			if tt.expectedAnswer != "" && result.JobPayload.Answer != tt.expectedAnswer {
				t.Errorf("Answer got %s, want %s", result.JobPayload.Answer, tt.expectedAnswer)
			}
			if !tt.wantErrorStatus {
				if result.JobPayload.HasContext != tt.wantHasContext {
					t.Errorf("HasContext got %v, want %v", result.JobPayload.HasContext, tt.wantHasContext)
				}
				if result.JobPayload.Answer == "" {
					t.Errorf("a completed question job must carry an answer")
				}
			}
			if tt.wantSources > 0 && len(result.JobPayload.Sources) != tt.wantSources {
				t.Errorf("Sources got %v, want %d entries", result.JobPayload.Sources, tt.wantSources)
			}
			if tt.wantErrorStatus && result.Error.Code != http.StatusInternalServerError {
				t.Errorf("Error code got %d, want %d", result.Error.Code, http.StatusInternalServerError)
			}
		})
	}
}

func TestIngestDocument_JobWrapping(t *testing.T) {
	tests := []struct {
		name           string
		ingest         func(ctx context.Context, doc knowledge.KnowledgeDocument) (knowledge.KnowledgeDocument, error)
		expectedStatus jobModel.JobStatus
	}{
		{
			name:           "Ingestion_Success",
			ingest:         nil,
			expectedStatus: jobModel.JobStatusComplete,
		},
		{
			name: "Ingestion_Failure",
			ingest: func(ctx context.Context, doc knowledge.KnowledgeDocument) (knowledge.KnowledgeDocument, error) {
				return doc, errors.New("extraction blew up")
			},
			expectedStatus: jobModel.JobStatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mDocs := &MockDocStore{}
			mDocs.SaveDocument(context.Background(), knowledge.KnowledgeDocument{
				Id: "doc-1", TenantId: "tenant-1", Kind: knowledge.KindText, SourceText: "hello",
			})

			s := rag.NewService(&MockVectorDB{}, &MockLLM{}, &MockEmbedder{}, &MockIngestor{OnIngest: tt.ingest}, mDocs)

			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "ingest-trace")
			job := jobModel.Job{
				Id:       "ingest-job-1",
				TenantId: "tenant-1",
				JobPayload: jobModel.JobPayload{
					DocumentId: "doc-1",
				},
			}

			result := s.IngestDocument(ctx, job)

			if result.Status != tt.expectedStatus {
				t.Errorf("Status got %v, want %v", result.Status, tt.expectedStatus)
			}
		})
	}
}
