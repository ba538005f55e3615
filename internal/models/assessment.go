package models

import (
	"time"
)

// AssessmentStatus tracks the lifecycle of a stored assessment.
// The orchestration layer is the sole writer of the completed/failed
// outcomes; handlers create records in pending state.
type AssessmentStatus string

const (
	AssessmentPending    AssessmentStatus = "pending"
	AssessmentProcessing AssessmentStatus = "processing"
	AssessmentCompleted  AssessmentStatus = "completed"
	AssessmentFailed     AssessmentStatus = "failed"
)

// Assessment is a persisted analysis request and its outcome.
type Assessment struct {
	ID           string           `json:"id" badgerhold:"key"`
	CompanyNames []string         `json:"company_names"`
	Mode         AnalysisMode     `json:"mode"`
	Status       AssessmentStatus `json:"status" badgerhold:"index"`
	Results      *AnalysisResult  `json:"results,omitempty"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at" badgerhold:"index"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IsTerminal reports whether the assessment has reached a final state.
func (s AssessmentStatus) IsTerminal() bool {
	return s == AssessmentCompleted || s == AssessmentFailed
}
