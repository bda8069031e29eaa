package server

import (
	"log/slog"
	"net/http"

	"datapulse/internal/handlers"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

func NewServer(api *handlers.APIHandlers, sse *handlers.SSEHandlers, logger *slog.Logger) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: api,
		sseHandlers: sse,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", handlers.HandleDashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("POST /api/query", s.apiHandlers.HandleQuery)
	s.mux.HandleFunc("POST /api/upload", s.apiHandlers.HandleUpload)
	s.mux.HandleFunc("GET /api/datasets", s.apiHandlers.HandleDatasets)
	s.mux.HandleFunc("DELETE /api/datasets/{type}", s.apiHandlers.HandleDeleteDataset)
	s.mux.HandleFunc("GET /api/mappings/{type}", s.apiHandlers.HandleMappings)
	s.mux.HandleFunc("POST /api/mappings", s.apiHandlers.HandleSetMapping)
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/alerts", s.apiHandlers.HandleAlerts)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/chat", s.sseHandlers.HandleChat)
	s.mux.HandleFunc("GET /sse/summary", s.sseHandlers.HandleSummary)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
