package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keikapi/AIApp/internal/access"
	"github.com/keikapi/AIApp/internal/auth"
	"github.com/keikapi/AIApp/internal/document"
	"github.com/keikapi/AIApp/internal/ingest"
	"github.com/keikapi/AIApp/internal/queue"
)

const maxUploadBytes = 32 << 20 // 32MB

type DocumentHandler struct {
	responder
	pipeline *ingest.Pipeline
	docs     *document.Service
	gate     *access.Gate
	queue    *queue.Client
}

func NewDocumentHandler(pipeline *ingest.Pipeline, docs *document.Service, gate *access.Gate, qc *queue.Client, production bool) *DocumentHandler {
	return &DocumentHandler{
		responder: responder{production: production},
		pipeline:  pipeline,
		docs:      docs,
		gate:      gate,
		queue:     qc,
	}
}

// Upload accepts a multipart file. By default extraction and indexing happen
// on the worker; ?mode=sync runs the whole pipeline in the request.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty file"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	owner := user.ID.String()

	if r.URL.Query().Get("mode") == "sync" {
		doc, err := h.pipeline.Ingest(r.Context(), data, header.Filename, contentType, owner)
		if err != nil {
			h.failIngest(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
		return
	}

	doc, err := h.pipeline.Accept(r.Context(), data, header.Filename, contentType, owner)
	if err != nil {
		h.failIngest(w, err)
		return
	}

	if err := h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{
		DocumentID: doc.ID,
		Owner:      owner,
	}); err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

// failIngest maps pipeline failure classes to statuses. A partial failure
// (blob stored, indexing failed) is reported but the document survives for a
// later re-index.
func (h *DocumentHandler) failIngest(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedType):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
	case errors.Is(err, ingest.ErrExtraction),
		errors.Is(err, ingest.ErrEmbedding),
		errors.Is(err, ingest.ErrIndex):
		h.fail(w, http.StatusUnprocessableEntity, err)
	default:
		h.fail(w, http.StatusInternalServerError, err)
	}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	docs, err := h.docs.ListByOwner(r.Context(), user.ID.String(), limit, offset)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	doc, err := h.docs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
			return
		}
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	if doc.Owner != user.ID.String() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// GrantURL asks the access gate for a signed download URL.
func (h *DocumentHandler) GrantURL(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	grant, err := h.gate.Authorize(r.Context(), chi.URLParam(r, "id"), user.ID.String())
	if err != nil {
		if errors.Is(err, access.ErrDenied) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
			return
		}
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, grant)
}

// Reindex re-runs extraction and indexing for a document whose earlier index
// write failed.
func (h *DocumentHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id := chi.URLParam(r, "id")
	doc, err := h.docs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
			return
		}
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	if doc.Owner != user.ID.String() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}

	if err := h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{
		DocumentID: doc.ID,
		Owner:      doc.Owner,
	}); err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
