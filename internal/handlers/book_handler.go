package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/interfaces"
	"github.com/ternarybob/liber/internal/models"
)

// BookHandler serves book and chunk inspection endpoints.
type BookHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewBookHandler creates a new book handler.
func NewBookHandler(storage interfaces.StorageManager, logger arbor.ILogger) *BookHandler {
	return &BookHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListBooksHandler handles GET /api/books requests.
func (h *BookHandler) ListBooksHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	books, err := h.storage.BookStorage().ListBooks()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list books")
		WriteError(w, http.StatusInternalServerError, "failed to list books")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"books": books,
		"count": len(books),
	})
}

// GetBookHandler handles GET /api/books/{id} requests.
func (h *BookHandler) GetBookHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "book id is required")
		return
	}

	book, err := h.storage.BookStorage().GetBook(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "book not found")
		return
	}

	WriteJSON(w, http.StatusOK, book)
}

// ListChunksHandler handles GET /api/chunks?book_id=...&limit=...&offset=...
// requests, returning chunk summaries ordered by position.
func (h *BookHandler) ListChunksHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	bookID := r.URL.Query().Get("book_id")
	if bookID == "" {
		WriteError(w, http.StatusBadRequest, "book_id query parameter is required")
		return
	}

	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	chunks, err := h.storage.ChunkStorage().ListChunks(bookID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("book_id", bookID).Msg("Failed to list chunks")
		WriteError(w, http.StatusInternalServerError, "failed to list chunks")
		return
	}

	total, err := h.storage.ChunkStorage().CountChunks(bookID)
	if err != nil {
		total = len(chunks)
	}

	summaries := make([]models.ChunkSummary, len(chunks))
	for i, chunk := range chunks {
		summaries[i] = chunk.Summary()
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"book_id": bookID,
		"chunks":  summaries,
		"count":   len(summaries),
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
