package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/models"
)

// multipartOverhead is the allowance for form boundaries and headers on top of the file size.
const multipartOverhead = 1 << 20

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	limit := s.config.Upload.MaxFileSize
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondErr(w, fmt.Errorf("%w: request exceeds %d bytes", models.ErrFileTooLarge, limit))
			return
		}
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if limit > 0 && header.Size > limit {
		s.respondErr(w, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", models.ErrFileTooLarge, header.Size, limit))
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	s.logger.Debug("upload request", zap.String("file_name", header.Filename), zap.Int("bytes", len(content)))
	doc, err := s.pipeline.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), content)
	if err != nil {
		status := statusFor(err)
		body := map[string]any{"error": err.Error()}
		if doc != nil {
			body["document"] = doc
		}
		s.logger.Warn("upload failed", zap.String("file_name", header.Filename), zap.Int("status", status), zap.Error(err))
		s.respondJSON(w, status, body)
		return
	}
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs, "total": len(docs)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("document_id", id))
	if err := s.pipeline.Delete(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondErr(w, err)
		return
	}
	s.logger.Debug("retrieve request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))
	s.respondJSON(w, http.StatusOK, s.retriever.Retrieve(r.Context(), req.Query, req.TopK, req.Threshold))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	embeddingStatus := "ok"
	if err := s.gateway.Ping(ctx); err != nil {
		s.logger.Debug("embedding backend ping failed", zap.Error(err))
		embeddingStatus = "unavailable"
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "embedding": embeddingStatus})
}

// sizer is implemented by stores backed by files on disk.
type sizer interface {
	SizeBytes() (int64, error)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docCount, err := s.store.CountDocuments(r.Context())
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	resp := models.Status{
		Documents:     docCount,
		Embeddings:    s.index.Count(),
		VectorBackend: s.index.Type(),
		StorageDriver: s.config.Storage.Driver,
		Config: models.StatusConfig{
			EmbeddingProvider:   s.config.Embedding.Provider,
			EmbeddingModel:      s.config.Embedding.Model,
			ChunkSize:           s.config.Chunking.ChunkSize,
			ChunkOverlap:        s.config.Chunking.Overlap(),
			MaxChunks:           s.config.Chunking.MaxChunks,
			TopK:                s.config.Retrieval.TopK,
			SimilarityThreshold: s.config.Retrieval.ThresholdOrDefault(),
			SupportedTypes:      s.config.Upload.SupportedTypes,
		},
	}
	if sz, ok := s.store.(sizer); ok {
		if n, err := sz.SizeBytes(); err == nil {
			resp.StorageBytes = &n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := req.Sync == nil || *req.Sync
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidConfiguration),
		errors.Is(err, models.ErrUnsupportedFileType),
		errors.Is(err, models.ErrExtraction),
		errors.Is(err, models.ErrDocumentProcessing),
		errors.Is(err, models.ErrFileTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
