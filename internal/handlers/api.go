package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
)

// APIHandler serves version and health endpoints.
type APIHandler struct {
	storage interfaces.StorageManager
	index   interfaces.VectorIndex
	llm     interfaces.LLMService
	logger  arbor.ILogger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(storage interfaces.StorageManager, index interfaces.VectorIndex, llm interfaces.LLMService) *APIHandler {
	return &APIHandler{
		storage: storage,
		index:   index,
		llm:     llm,
		logger:  common.GetLogger(),
	}
}

// VersionHandler returns version information.
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

// HealthHandler returns per-dependency health. The service is degraded, not
// down, when a single dependency fails; the status code reflects the worst.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.storage.HealthCheck(); err != nil {
		checks["metadata_store"] = err.Error()
		healthy = false
	} else {
		checks["metadata_store"] = "ok"
	}

	if err := h.index.HealthCheck(ctx); err != nil {
		checks["vector_index"] = err.Error()
		healthy = false
	} else {
		checks["vector_index"] = "ok"
	}

	if err := h.llm.HealthCheck(ctx); err != nil {
		checks["llm"] = err.Error()
		healthy = false
	} else {
		checks["llm"] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// NotFoundHandler handles 404 errors with a JSON response.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
