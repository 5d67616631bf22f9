package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Ingestion
	mux.HandleFunc("/api/ingest", s.app.IngestHandler.IngestHandler)

	// API routes - Chat (grounded question answering)
	mux.HandleFunc("/api/chat", s.app.ChatHandler.ChatHandler)
	mux.HandleFunc("/api/chat/selected", s.app.ChatHandler.SelectedChatHandler)

	// API routes - Books and chunks
	mux.HandleFunc("/api/books", s.app.BookHandler.ListBooksHandler)
	mux.HandleFunc("/api/books/", s.app.BookHandler.GetBookHandler) // GET /{id}
	mux.HandleFunc("/api/chunks", s.app.BookHandler.ListChunksHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Unknown API paths get a JSON 404 instead of the default handler
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/" {
			s.app.APIHandler.NotFoundHandler(w, r)
			return
		}
		http.NotFound(w, r)
	})

	return mux
}
