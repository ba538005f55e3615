package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/interfaces"
	"github.com/solvency-io/solvency/internal/models"
)

// analyzeRequest is the POST /api/analyze body.
type analyzeRequest struct {
	CompanyNames []string `json:"company_names"`
	Mode         string   `json:"mode"`
}

// AnalysisHandler accepts analysis requests and tracks them as stored
// assessments. Analysis runs in the background; clients poll the
// assessment record for completion.
type AnalysisHandler struct {
	service interfaces.AnalysisService
	storage interfaces.AssessmentStorage
	events  interfaces.EventService
	logger  arbor.ILogger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(service interfaces.AnalysisService, storage interfaces.AssessmentStorage, events interfaces.EventService, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		storage: storage,
		events:  events,
		logger:  logger,
	}
}

// AnalyzeHandler handles POST /api/analyze.
func (h *AnalysisHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if len(req.CompanyNames) == 0 {
		WriteError(w, http.StatusBadRequest, "company_names is required")
		return
	}

	mode := models.AnalysisMode(req.Mode)
	if req.Mode == "" {
		mode = models.ModeDetailed
	}
	if !mode.IsValid() {
		WriteError(w, http.StatusBadRequest, "mode must be 'quick' or 'detailed'")
		return
	}

	assessment := &models.Assessment{
		CompanyNames: req.CompanyNames,
		Mode:         mode,
		Status:       models.AssessmentPending,
	}
	if err := h.storage.Create(r.Context(), assessment); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create assessment")
		WriteError(w, http.StatusInternalServerError, "failed to create assessment")
		return
	}

	go h.runAnalysis(assessment)

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"assessment_id": assessment.ID,
		"status":        assessment.Status,
		"mode":          mode,
	})
}

// runAnalysis drives a stored assessment through its lifecycle. Detached
// from the request context so a closed connection does not abort the run.
func (h *AnalysisHandler) runAnalysis(assessment *models.Assessment) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	h.transition(ctx, assessment.ID, models.AssessmentProcessing, nil, "")

	outcome, err := h.service.Analyze(ctx, assessment.CompanyNames, assessment.Mode)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("assessment_id", assessment.ID).
			Msg("Analysis failed")
		h.transition(ctx, assessment.ID, models.AssessmentFailed, nil, err.Error())
		return
	}

	h.transition(ctx, assessment.ID, models.AssessmentCompleted, outcome.Result, "")
	h.logger.Info().
		Str("assessment_id", assessment.ID).
		Int("companies", len(outcome.Result.Companies)).
		Bool("used_fallback", outcome.Result.Metadata.UsedFallback).
		Msg("Assessment completed")
}

func (h *AnalysisHandler) transition(ctx context.Context, id string, status models.AssessmentStatus, results *models.AnalysisResult, errMsg string) {
	if err := h.storage.UpdateStatus(ctx, id, status, results, errMsg); err != nil {
		h.logger.Error().
			Err(err).
			Str("assessment_id", id).
			Str("status", string(status)).
			Msg("Failed to update assessment status")
		return
	}

	if h.events != nil {
		payload := map[string]interface{}{
			"assessment_id": id,
			"status":        string(status),
		}
		if errMsg != "" {
			payload["error"] = errMsg
		}
		h.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventAssessmentStatus,
			Payload: payload,
		})
	}
}
