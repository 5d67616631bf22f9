package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/interfaces"
)

// IngestHandler handles book ingestion HTTP requests.
type IngestHandler struct {
	ingestService interfaces.IngestService
	logger        arbor.ILogger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(ingestService interfaces.IngestService, logger arbor.ILogger) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		logger:        logger,
	}
}

// IngestHandler handles POST /api/ingest requests. Ingestion runs
// synchronously; the response carries the final status.
func (h *IngestHandler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interfaces.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Failed to decode ingest request")
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.Info().Str("path", req.BookPath).Msg("Processing ingest request")

	result, err := h.ingestService.Ingest(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
