package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/interfaces"
	"github.com/ternarybob/liber/internal/models"
)

// ChatHandler handles question-answering HTTP requests.
type ChatHandler struct {
	chatService interfaces.ChatService
	logger      arbor.ILogger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatService interfaces.ChatService, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// ChatHandler handles POST /api/chat requests.
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interfaces.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Failed to decode chat request")
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.chatService.Chat(r.Context(), &req)
	if err != nil {
		h.logger.Error().Err(err).Str("book_id", req.BookID).Msg("Chat request failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, answer)
}

// SelectedChatHandler handles POST /api/chat/selected requests. It forces
// selected-text mode regardless of the request body's mode field.
func (h *ChatHandler) SelectedChatHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interfaces.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Failed to decode selected-text chat request")
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SelectedText == "" {
		WriteError(w, http.StatusBadRequest, "selected_text is required")
		return
	}
	req.Mode = string(models.ModeSelectedText)

	answer, err := h.chatService.Chat(r.Context(), &req)
	if err != nil {
		h.logger.Error().Err(err).Str("book_id", req.BookID).Msg("Selected-text chat request failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, answer)
}
