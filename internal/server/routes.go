package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Chat
	mux.HandleFunc("/api/chat", s.app.ChatHandler.ChatHandler)
	mux.HandleFunc("/api/chat/history", s.handleHistoryRoute) // GET (list), DELETE (clear)

	// API routes - Documents
	mux.HandleFunc("/api/documents/upload", s.app.DocumentHandler.UploadHandler)
	mux.HandleFunc("/api/documents/url", s.app.DocumentHandler.URLHandler)

	// API routes - Index
	mux.HandleFunc("/api/index/stats", s.app.APIHandler.IndexStatsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleHistoryRoute routes /api/chat/history by method
func (s *Server) handleHistoryRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:    s.app.ChatHandler.GetHistoryHandler,
		http.MethodDelete: s.app.ChatHandler.ClearHistoryHandler,
	})
}
