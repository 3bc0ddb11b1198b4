package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// APIHandler serves the system and index endpoints
type APIHandler struct {
	index  interfaces.SimilarityIndex
	logger arbor.ILogger
}

func NewAPIHandler(index interfaces.SimilarityIndex, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		index:  index,
		logger: logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler reports liveness plus whether the corpus index is resident.
// An empty or not yet loaded index is still healthy.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats := h.index.Stats()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"corpus":       stats.Corpus,
		"index_loaded": stats.Loaded,
	})
}

// IndexStatsHandler handles GET /api/index/stats
func (h *APIHandler) IndexStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"index":   h.index.Stats(),
	})
}

func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "no route for "+r.Method+" "+r.URL.Path)
}
