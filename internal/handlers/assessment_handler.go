package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/interfaces"
	"github.com/solvency-io/solvency/internal/models"
	"github.com/solvency-io/solvency/internal/services/reports"
)

// AssessmentHandler serves stored assessment records and their reports.
type AssessmentHandler struct {
	storage interfaces.AssessmentStorage
	reports *reports.Service
	logger  arbor.ILogger
}

// NewAssessmentHandler creates a new assessment handler.
func NewAssessmentHandler(storage interfaces.AssessmentStorage, reportService *reports.Service, logger arbor.ILogger) *AssessmentHandler {
	return &AssessmentHandler{
		storage: storage,
		reports: reportService,
		logger:  logger,
	}
}

// ListHandler handles GET /api/assessments.
func (h *AssessmentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	assessments, err := h.storage.List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list assessments")
		WriteError(w, http.StatusInternalServerError, "failed to list assessments")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"assessments": assessments,
		"count":       len(assessments),
	})
}

// AssessmentRoutes dispatches /api/assessments/{id} and
// /api/assessments/{id}/report.
func (h *AssessmentHandler) AssessmentRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/assessments/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) == 0 || parts[0] == "" {
		WriteError(w, http.StatusBadRequest, "assessment id is required")
		return
	}
	id := parts[0]

	if len(parts) == 2 && parts[1] == "report" {
		h.reportHandler(w, r, id)
		return
	}
	if len(parts) > 1 {
		WriteError(w, http.StatusNotFound, "unknown assessment route")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getHandler(w, r, id)
	case http.MethodDelete:
		h.deleteHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AssessmentHandler) getHandler(w http.ResponseWriter, r *http.Request, id string) {
	assessment, err := h.storage.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrAssessmentNotFound) {
			WriteError(w, http.StatusNotFound, "assessment not found")
			return
		}
		h.logger.Error().Err(err).Str("assessment_id", id).Msg("Failed to get assessment")
		WriteError(w, http.StatusInternalServerError, "failed to get assessment")
		return
	}
	WriteJSON(w, http.StatusOK, assessment)
}

func (h *AssessmentHandler) deleteHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.storage.Delete(r.Context(), id); err != nil {
		if errors.Is(err, interfaces.ErrAssessmentNotFound) {
			WriteError(w, http.StatusNotFound, "assessment not found")
			return
		}
		h.logger.Error().Err(err).Str("assessment_id", id).Msg("Failed to delete assessment")
		WriteError(w, http.StatusInternalServerError, "failed to delete assessment")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "assessment_id": id})
}

// reportHandler handles GET /api/assessments/{id}/report, returning the
// rendered PDF.
func (h *AssessmentHandler) reportHandler(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	assessment, err := h.storage.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrAssessmentNotFound) {
			WriteError(w, http.StatusNotFound, "assessment not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to get assessment")
		return
	}

	if assessment.Status != models.AssessmentCompleted || assessment.Results == nil {
		WriteError(w, http.StatusConflict, fmt.Sprintf("assessment is %s, report requires a completed assessment", assessment.Status))
		return
	}

	pdf, err := h.reports.GenerateAssessmentReport(assessment)
	if err != nil {
		h.logger.Error().Err(err).Str("assessment_id", id).Msg("Failed to generate report")
		WriteError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"assessment-%s.pdf\"", id))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
