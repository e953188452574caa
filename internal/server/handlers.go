package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Saksha05/Invoices-Information-Extraction/internal/assistant"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/ingest"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/models"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/search"
	"github.com/Saksha05/Invoices-Information-Extraction/internal/storage"
)

// maxUploadBytes caps multipart uploads at 32 MiB.
const maxUploadBytes = 32 << 20

type ingestRequest struct {
	Name     string                 `json:"name"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// handleIngestDocument accepts either a JSON body with raw text or a
// multipart form with a "file" field.
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		s.handleIngestUpload(w, r)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "name and text are required")
		return
	}
	result, err := s.pipeline.Ingest(r.Context(), req.Text, req.Name, req.Metadata)
	if err != nil {
		s.respondIngestError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleIngestUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	result, err := s.pipeline.IngestBytes(r.Context(), content, ext, header.Filename, nil)
	if err != nil {
		s.respondIngestError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) respondIngestError(w http.ResponseWriter, err error) {
	if errors.Is(err, ingest.ErrNoContent) {
		s.respondError(w, http.StatusUnprocessableEntity, "no extractable text content")
		return
	}
	s.logger.Error("ingestion failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("delete failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAll(r.Context()); err != nil {
		s.logger.Error("clear failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}

type askRequest struct {
	Question   string `json:"question"`
	DocumentID int64  `json:"document_id,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		s.respondError(w, http.StatusNotImplemented, "assistant not configured")
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answer, err := s.assistant.Ask(r.Context(), req.Question, req.DocumentID)
	if err != nil {
		s.respondAssistantError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

type analyzeRequest struct {
	Incident   string `json:"incident"`
	DocumentID int64  `json:"document_id,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		s.respondError(w, http.StatusNotImplemented, "assistant not configured")
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	analysis, err := s.assistant.AnalyzeCoverage(r.Context(), req.Incident, req.DocumentID)
	if err != nil {
		s.respondAssistantError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) respondAssistantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assistant.ErrNoRelevantContext):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("assistant request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
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
