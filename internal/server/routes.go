package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket status stream
	mux.HandleFunc("/ws/status", s.app.WSHandler.HandleWebSocket)

	// Analysis
	mux.HandleFunc("/api/analyze", s.app.AnalysisHandler.AnalyzeHandler) // POST

	// Assessments: GET list, GET/DELETE /{id}, GET /{id}/report
	mux.HandleFunc("/api/assessments", s.app.AssessmentHandler.ListHandler)
	mux.HandleFunc("/api/assessments/", s.app.AssessmentHandler.AssessmentRoutes)

	// System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
