package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/docuchat/docuchat/internal/ingest"
	"github.com/docuchat/docuchat/internal/models"
	"github.com/docuchat/docuchat/internal/registry"
)

const maxUploadMemory = 32 << 20

// ingestDocumentRequest is the JSON body for direct document ingestion.
type ingestDocumentRequest struct {
	models.DocumentInput
	Namespace    string `json:"namespace,omitempty"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

// ingestErrorStatus maps ingest failures to HTTP statuses: bad input is the
// client's fault, a failed provider call is not.
func ingestErrorStatus(err error) int {
	if ingest.IsProviderFailure(err) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func (s *Server) ingestOptions(namespace string, chunkSize, chunkOverlap int) ingest.Options {
	opts := ingest.Options{
		ChunkSize:    s.config.Ingest.ChunkSize,
		ChunkOverlap: s.config.Ingest.ChunkOverlap,
		Namespace:    namespace,
	}
	if chunkSize > 0 {
		opts.ChunkSize = chunkSize
	}
	if chunkOverlap > 0 {
		opts.ChunkOverlap = chunkOverlap
	}
	return opts
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest document request",
		zap.String("title", req.Title), zap.String("namespace", req.Namespace))

	result, err := s.pipeline.IngestDocument(r.Context(),
		&req.DocumentInput, s.ingestOptions(req.Namespace, req.ChunkSize, req.ChunkOverlap))
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, ingestErrorStatus(err), err.Error())
		return
	}
	s.catalogIngested(r, result)
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "cannot read uploaded file")
		return
	}

	namespace := r.FormValue("namespace")
	chunkSize, _ := strconv.Atoi(r.FormValue("chunk_size"))
	chunkOverlap, _ := strconv.Atoi(r.FormValue("chunk_overlap"))
	s.logger.Debug("file upload request",
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(content)),
		zap.String("namespace", namespace))

	result, err := s.pipeline.IngestFile(r.Context(), header.Filename, content,
		s.ingestOptions(namespace, chunkSize, chunkOverlap))
	if err != nil {
		s.logger.Error("file ingest failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, ingestErrorStatus(err), err.Error())
		return
	}
	s.catalogIngested(r, result)
	s.respondJSON(w, http.StatusCreated, result)
}

// catalogIngested mirrors freshly ingested documents into the keyword catalog.
func (s *Server) catalogIngested(r *http.Request, result *models.IngestResult) {
	if s.catalog == nil || s.registry == nil {
		return
	}
	for _, id := range result.DocumentIDs {
		rec, err := s.registry.Get(r.Context(), id)
		if err != nil {
			continue
		}
		if err := s.catalog.Index(rec); err != nil {
			s.logger.Warn("catalog index failed", zap.String("id", id), zap.Error(err))
		}
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	var records []*registry.Record
	if query != "" && s.catalog != nil {
		hits, err := s.catalog.Search(query, namespace, limit)
		if err != nil {
			s.logger.Error("catalog search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, hit := range hits {
			rec, err := s.registry.Get(r.Context(), hit.ID)
			if err != nil {
				// Catalog can lag behind deletes.
				continue
			}
			records = append(records, rec)
		}
	} else {
		var err error
		records, err = s.registry.List(r.Context(), namespace, offset, limit)
		if err != nil {
			s.logger.Error("list documents failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if records == nil {
		records = []*registry.Record{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": records,
		"total":     len(records),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.pipeline.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if s.catalog != nil {
		_ = s.catalog.Delete(id)
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// deleteChunksRequest deletes explicit chunk ids from a namespace.
type deleteChunksRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

func (s *Server) handleDeleteChunks(w http.ResponseWriter, r *http.Request) {
	var req deleteChunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		s.respondError(w, http.StatusBadRequest, "ids cannot be empty")
		return
	}
	if err := s.pipeline.DeleteChunks(r.Context(), req.IDs, req.Namespace); err != nil {
		s.logger.Error("chunk deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "deleted",
		"deleted": len(req.IDs),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", req.Query),
		zap.String("namespace", req.Namespace),
		zap.Int("top_k", req.TopK))

	response, err := s.retrieval.SearchResponse(r.Context(), &req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	namespace := r.URL.Query().Get("namespace")
	stats, err := s.store.Stats(r.Context(), namespace)
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func (s *Server) handleClearNamespace(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")
	s.logger.Debug("clear namespace request", zap.String("namespace", namespace))

	// Snapshot the records first so catalog entries can be dropped after the
	// pipeline clears the registry.
	var ids []string
	if s.registry != nil {
		if recs, err := s.registry.List(r.Context(), namespace, 0, 1<<30); err == nil {
			for _, rec := range recs {
				ids = append(ids, rec.ID)
			}
		}
	}
	if err := s.pipeline.ClearNamespace(r.Context(), namespace); err != nil {
		s.logger.Error("clear namespace failed", zap.String("namespace", namespace), zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.catalog != nil {
		for _, id := range ids {
			_ = s.catalog.Delete(id)
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"namespace": namespace, "status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
