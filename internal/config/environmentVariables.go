package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"
	TENANT_ID_KEY  = "tenantId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//guarded fetcher
	FetchTimeout       = 20 * time.Second
	MaxRedirectHops    = 5
	MaxTextBodyBytes   = 3 << 20  //html/text/json responses
	MaxBinaryBodyBytes = 25 << 20 //pdf/image assets
	FetchUserAgent     = "KnowledgeAPI/1.0 (+ingestion)"

	//tiered extraction
	MinMeaningfulTextLen = 200
	MaxEmbeddedJSONDepth = 12
	MaxEmbeddedJSONBytes = 2 << 20
	MaxCandidateLinks    = 3

	//chunker
	ChunkSize         = 1200
	ChunkOverlap      = 150
	ChunkMinLength    = 80
	BoundaryLookahead = 120

	//per-tenant resource caps
	TenantActiveChunkCap = 5000
	MaxPDFPages          = 60
	UpsertBatchSize      = 64

	//retrieval
	RetrievalBatchSize    uint64  = 20
	DiversityCapPerDoc            = 2
	DistanceThreshold     float32 = 0.7 //cosine distance, lower is closer
	ContextChunkLimit             = 8
	CacheSimilarityCutoff         = 0.97

	EmbeddingOutputDimensionality int32 = 1536
	ChunkCollectionName                 = "knowledge-chunks"
	AnswerCacheCollectionName           = "answer-cache"

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//worker deadlines - ingest/catalog jobs call out to several services so they get longer
	QueryJobTimeout   = 60 * time.Second
	IngestJobTimeout  = 5 * time.Minute
	CatalogJobTimeout = 5 * time.Minute

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = ""
	QdrantPort              = 6333 //http
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1
	QdrantKeepAliveTimeout  = 30 * time.Second

	//generation + embeddings
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GeminiVisionModel    = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"
	GoogleAPIKey         = ""

	OpenAIExtractionModel = "gpt-4o-mini"
	OpenAIAPIKey          = ""

	ModelTemperature   float32 = 0.2
	AnswerSystemPrompt         = "You answer questions for one business using only the numbered context below. If the context does not contain the answer, say you don't know. Cite context numbers in brackets."

	//headless rendering collaborator
	RenderServiceURL     = ""
	RenderRequestTimeout = 90 * time.Second

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""

	//redis has 16 DB we can use
	RedisJobStore      = 0
	RedisDocumentStore = 1
	RedisCatalogStore  = 2

	//redis timeouts
	RedisJobStoreTTL    = 24 * time.Hour
	RedisIdempotencyTTL = 48 * time.Hour

	//uploaded source files
	StorageDirName    = "temporary_data"
	MaxUploadBytes    = 25 << 20
	MaxSourcesPerJob  = 10
	MaxQuestionLength = 2000

	NoAuthBypass = false
	AuthToken    = "change-me"
)
