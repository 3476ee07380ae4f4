package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/omoide/internal/catalog"
	"github.com/hyperjump/omoide/internal/models"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		if query.Query == "" {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.index.Stats()
	resp := map[string]interface{}{
		"total":      stats.Total,
		"images":     stats.Images,
		"videos":     stats.Videos,
		"dimensions": stats.Dimensions,
	}

	diskBytes, err := catalog.DiskUsageBytes(s.config.Storage.IndexDir, s.config.Storage.CatalogPath)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}

	if s.catalog != nil {
		ctx := r.Context()
		if count, err := s.catalog.CountIndexed(ctx); err == nil {
			resp["cataloged_files"] = count
		}
		if count, err := s.catalog.CountOrganized(ctx); err == nil {
			resp["organized_files"] = count
		}
	}

	resp["config"] = map[string]interface{}{
		"index_dir":            s.config.Storage.IndexDir,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"min_similarity":       s.config.Search.MinSimilarity,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleMedia serves the bytes of an indexed media file. Only paths known to
// the catalog or the index are served, so the endpoint cannot be used to read
// arbitrary files.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if !s.isIndexedPath(r, abs) {
		s.respondError(w, http.StatusNotFound, "media not found")
		return
	}
	if _, err := os.Stat(abs); err != nil {
		s.respondError(w, http.StatusNotFound, "media not found")
		return
	}
	http.ServeFile(w, r, abs)
}

func (s *Server) isIndexedPath(r *http.Request, abs string) bool {
	if s.catalog != nil {
		_, err := s.catalog.GetIndexed(r.Context(), abs)
		if err == nil {
			return true
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			s.logger.Warn("catalog lookup failed", zap.String("path", abs), zap.Error(err))
		}
	}
	found := false
	s.index.Entries()(func(_ int, entry models.MediaEntry) bool {
		if entry.FilePath == abs {
			found = true
			return false
		}
		return true
	})
	return found
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
