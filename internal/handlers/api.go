package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/common"
)

// APIHandler serves system-level endpoints.
type APIHandler struct {
	config    *common.Config
	logger    arbor.ILogger
	startTime time.Time
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(config *common.Config, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		config:    config,
		logger:    logger,
		startTime: time.Now(),
	}
}

// VersionHandler returns version information.
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetFullVersion(),
	})
}

// HealthHandler reports service liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": h.config.Environment,
		"uptime_s":    int(time.Since(h.startTime).Seconds()),
		"version":     common.GetVersion(),
	})
}

// NotFoundHandler handles unmatched API routes.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "endpoint not found: "+r.URL.Path)
}
