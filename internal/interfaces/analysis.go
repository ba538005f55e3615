package interfaces

import (
	"context"

	"github.com/solvency-io/solvency/internal/models"
)

// AnalysisOutcome pairs a result with its consistency metadata.
type AnalysisOutcome struct {
	Result      *models.AnalysisResult     `json:"result"`
	Consistency models.ConsistencyMetadata `json:"consistency"`
}

// StatusCallback receives assessment status transitions
// (pending -> processing -> completed | failed).
type StatusCallback func(ctx context.Context, status models.AssessmentStatus, result *models.AnalysisResult, err error)

// AnalysisService runs LLM-backed financial analyses.
type AnalysisService interface {
	// Analyze runs an analysis for the given company names and mode.
	// Provider and parse failures are absorbed up to the attempt cap and
	// masked behind a deterministic fallback result; only configuration
	// errors and an open circuit surface as errors.
	Analyze(ctx context.Context, companyNames []string, mode models.AnalysisMode) (*AnalysisOutcome, error)
}
