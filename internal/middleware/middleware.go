package middleware

import (
	"net/http"
	"strconv"

	"github.com/svemana/KnowledgeAPI/internal/handlers"
	"github.com/svemana/KnowledgeAPI/internal/metrics"
	"github.com/svemana/KnowledgeAPI/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

var GetHandler = Wrap(handlers.GetHandler)

var AskHandler = Wrap(handlers.AskHandler)
var GetJobStatusHandler = Wrap(handlers.GetJobStatusHandler)

var CreateDocumentHandler = Wrap(handlers.CreateDocumentHandler)
var UploadDocumentHandler = Wrap(handlers.UploadDocumentHandler)
var ListDocumentsHandler = Wrap(handlers.ListDocumentsHandler)
var GetDocumentHandler = Wrap(handlers.GetDocumentHandler)
var EnableDocumentHandler = Wrap(handlers.EnableDocumentHandler)
var DisableDocumentHandler = Wrap(handlers.DisableDocumentHandler)
var DeleteDocumentHandler = Wrap(handlers.DeleteDocumentHandler)

var SubmitCatalogJobHandler = Wrap(handlers.SubmitCatalogJobHandler)
var GetCatalogJobHandler = Wrap(handlers.GetCatalogJobHandler)
var GetProposalHandler = Wrap(handlers.GetProposalHandler)
var ApplyProposalHandler = Wrap(handlers.ApplyProposalHandler)
var RejectProposalHandler = Wrap(handlers.RejectProposalHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Info("New request received")
	re = injectTrace(re)
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	re = injectTenant(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = rateLimiter(re)
	return re
}
