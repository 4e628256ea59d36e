package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/svemana/KnowledgeAPI/internal/adapter/utils"
	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/middleware"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()

	r.Router.Get("/health", middleware.GetHandler)

	r.Router.Post("/ask", middleware.AskHandler)
	r.Router.Get("/jobs/{id}", middleware.GetJobStatusHandler)

	r.Router.Post("/documents", middleware.CreateDocumentHandler)
	r.Router.Post("/documents/upload", middleware.UploadDocumentHandler)
	r.Router.Get("/documents", middleware.ListDocumentsHandler)
	r.Router.Get("/documents/{id}", middleware.GetDocumentHandler)
	r.Router.Post("/documents/{id}/enable", middleware.EnableDocumentHandler)
	r.Router.Post("/documents/{id}/disable", middleware.DisableDocumentHandler)
	r.Router.Delete("/documents/{id}", middleware.DeleteDocumentHandler)

	r.Router.Post("/catalog/jobs", middleware.SubmitCatalogJobHandler)
	r.Router.Get("/catalog/jobs/{id}", middleware.GetCatalogJobHandler)
	r.Router.Get("/proposals/{id}", middleware.GetProposalHandler)
	r.Router.Post("/proposals/{id}/apply", middleware.ApplyProposalHandler)
	r.Router.Post("/proposals/{id}/reject", middleware.RejectProposalHandler)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	println("\nServer is shutting down", state)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully: %s", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully is shutting down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
