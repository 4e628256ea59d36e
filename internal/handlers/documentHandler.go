package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/svemana/KnowledgeAPI/internal/adapter"
	"github.com/svemana/KnowledgeAPI/internal/adapter/utils"
	"github.com/svemana/KnowledgeAPI/internal/api"
	"github.com/svemana/KnowledgeAPI/internal/config"
	"github.com/svemana/KnowledgeAPI/internal/data/store"
	"github.com/svemana/KnowledgeAPI/internal/domain/jobModel"
	"github.com/svemana/KnowledgeAPI/internal/domain/knowledge"
)

// CreateDocumentHandler registers a text or url source as a new knowledge
// document and queues its ingestion. File-backed kinds go through the upload
// handler instead.
func CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	var requestData api.CreateDocumentRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}

	kind := knowledge.SourceKind(requestData.Kind)
	if kind != knowledge.KindText && kind != knowledge.KindURL {
		WriteErrorResponse(w, http.StatusBadRequest, "", "kind must be text or url")
		return
	}

	doc := knowledge.KnowledgeDocument{
		Id:          utils.GetNewUUID(),
		TenantId:    tenantFrom(r.Context()),
		Name:        requestData.Name,
		Kind:        kind,
		SourceText:  requestData.SourceText,
		SourceURL:   requestData.SourceURL,
		Status:      knowledge.DocStatusProcessing,
		CreatedTime: time.Now(),
		UpdatedTime: time.Now(),
	}
	if doc.Name == "" || doc.ValidateSource() != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "name and the source field for the kind are required")
		return
	}

	queueDocumentIngest(w, r, doc)
}

// UploadDocumentHandler receives a pdf, image or office file via
// multipart/form-data, stores the bytes and queues ingestion.
func UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", r.RemoteAddr)
		return
	}

	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	docName := r.FormValue("document_name")
	if docName == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "document_name is required")
		return
	}
	kind := knowledge.SourceKind(r.FormValue("kind"))
	if kind != knowledge.KindPDF && kind != knowledge.KindImage && kind != knowledge.KindFile {
		WriteErrorResponse(w, http.StatusBadRequest, docName, "kind must be pdf, image or file")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	data, err := io.ReadAll(io.LimitReader(fileReader, config.MaxUploadBytes))
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Read error")
		return
	}

	tenantId := tenantFrom(r.Context())
	storagePath, err := handlerInstance.service.Uploads.Save(r.Context(), tenantId, fileMetadata.Filename, data)
	if err != nil {
		logRH.Error("Storing uploaded file failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
		return
	}

	doc := knowledge.KnowledgeDocument{
		Id:          utils.GetNewUUID(),
		TenantId:    tenantId,
		Name:        docName,
		Kind:        kind,
		StoragePath: storagePath,
		Status:      knowledge.DocStatusProcessing,
		CreatedTime: time.Now(),
		UpdatedTime: time.Now(),
	}
	queueDocumentIngest(w, r, doc)
}

func queueDocumentIngest(w http.ResponseWriter, r *http.Request, doc knowledge.KnowledgeDocument) {
	if err := handlerInstance.service.DocumentStore.SaveDocument(r.Context(), doc); err != nil {
		logRH.Error("Saving document record failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, doc.Id, "Storage error")
		return
	}

	newData := newJobData{
		id:         utils.GetNewUUID(),
		tenantId:   doc.TenantId,
		traceId:    traceFrom(r.Context()),
		jobType:    jobModel.JobTypeIngest,
		documentId: doc.Id,
	}
	CreateNewJob(newData)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitDocumentResponse(newData.id, doc.Id))
}

func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	docs, err := handlerInstance.service.DocumentStore.ListDocuments(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentListResponse(docs))
}

func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.service.DocumentStore.GetDocument(r.Context(), tenantFrom(r.Context()), id)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

func EnableDocumentHandler(w http.ResponseWriter, r *http.Request) {
	setDocumentEnabled(w, r, true)
}

func DisableDocumentHandler(w http.ResponseWriter, r *http.Request) {
	setDocumentEnabled(w, r, false)
}

func setDocumentEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.service.Documents.SetDocumentEnabled(r.Context(), tenantFrom(r.Context()), id, enabled)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
			return
		}
		logRH.Error("Toggling document failed", "documentId", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

// DeleteDocumentHandler removes the document record and every chunk it owns.
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	tenantId := tenantFrom(r.Context())

	if _, err := handlerInstance.service.DocumentStore.GetDocument(r.Context(), tenantId, id); err != nil {
		WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
		return
	}
	if err := handlerInstance.service.Documents.DeleteDocument(r.Context(), tenantId, id); err != nil {
		logRH.Error("Deleting document chunks failed", "documentId", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
		return
	}
	if err := handlerInstance.service.DocumentStore.DeleteDocument(r.Context(), tenantId, id); err != nil {
		logRH.Error("Deleting document record failed", "documentId", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Internal Server Error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
