package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/svemana/KnowledgeAPI/internal/catalog"
	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/data/localStorage"
	"github.com/svemana/KnowledgeAPI/internal/data/store"
	jobmodel "github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/extract"
	"github.com/svemana/KnowledgeAPI/internal/fetch"
	"github.com/svemana/KnowledgeAPI/internal/handlers"
	"github.com/svemana/KnowledgeAPI/internal/job"
	"github.com/svemana/KnowledgeAPI/internal/rag"
	"github.com/svemana/KnowledgeAPI/internal/rag/embedding/googleEmbedding"
	"github.com/svemana/KnowledgeAPI/internal/rag/ingestor"
	"github.com/svemana/KnowledgeAPI/internal/rag/llm/gemini"
	"github.com/svemana/KnowledgeAPI/internal/rag/vectorDB/qdrantDB"
	"github.com/svemana/KnowledgeAPI/internal/server"
	"github.com/svemana/KnowledgeAPI/internal/worker"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//stores
	var jobStore jobmodel.JobStore
	if redisJobs := store.GetRedisJobStore(serviceContext); redisJobs != nil {
		jobStore = redisJobs
	} else {
		logger.Error("Redis job store is offline, falling back to in-memory")
		jobStore = store.InitInMemoryJobStore()
	}
	documentStore := store.GetRedisDocumentStore(serviceContext)
	catalogStore := store.GetRedisCatalogStore(serviceContext)
	if documentStore == nil || catalogStore == nil {
		//document and catalog records have no in-memory fallback: losing them on
		//restart would orphan vectors and idempotency keys
		logger.Error("Redis is required for document and catalog stores. Shutting down.")
		return
	}

	uploads, err := localStorage.GetLocalStorage()
	if err != nil {
		logger.Error("Local storage init failed. Shutting down.", "error", err)
		return
	}

	//external services
	googleKey := envOr("GOOGLE_API_KEY", config.GoogleAPIKey)
	openAIKey := envOr("OPENAI_API_KEY", config.OpenAIAPIKey)

	vectorDB := qdrantDB.GetQuadrantClient(serviceContext)
	embeddingService := googleEmbedding.GetGoogleEmbeddingClient(serviceContext, config.GoogleEmbeddingModel, googleKey)
	llmProvider := gemini.GetGeminiClient(serviceContext, config.GeminiModelName, googleKey)
	visionClient := gemini.GetGeminiVisionClient(serviceContext, config.GeminiVisionModel, googleKey)

	if vectorDB == nil || embeddingService == nil || llmProvider == nil || visionClient == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", vectorDB != nil, "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}
	if err := vectorDB.EnsureCollections(serviceContext); err != nil {
		logger.Error("Creating vector collections failed. Shutting down.", "error", err)
		return
	}

	//extraction pipeline
	var renderer extract.Renderer
	if endpoint := envOr("RENDER_SERVICE_URL", config.RenderServiceURL); endpoint != "" {
		renderer = extract.NewHTTPRenderer(endpoint)
	}
	documentExtractor := extract.NewDocumentExtractor(fetch.NewFetcher(), renderer, visionClient, uploads)

	docIngestor := ingestor.NewIngestor(documentExtractor, embeddingService, vectorDB, documentStore)
	ragService := rag.NewService(vectorDB, llmProvider, embeddingService, docIngestor, documentStore)

	//catalog ingest state machine
	itemGenerator := catalog.GetOpenAIItemGenerator(openAIKey)
	catalogRunner := catalog.NewRunner(catalogStore, documentExtractor, itemGenerator)

	//init job service
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
		DocumentStore:     documentStore,
		Documents:         docIngestor,
		Catalog:           catalogRunner,
		CatalogStore:      catalogStore,
		Uploads:           uploads,
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	handlers.InitJobHandler(service)

	//init worker pool
	worker.InitServices(service, ragService, catalogRunner)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

func envOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
