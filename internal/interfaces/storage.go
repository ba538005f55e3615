package interfaces

import (
	"context"
	"errors"

	"github.com/solvency-io/solvency/internal/models"
)

// ErrAssessmentNotFound is returned when an assessment does not exist.
var ErrAssessmentNotFound = errors.New("assessment not found")

// AssessmentStorage persists assessment records.
type AssessmentStorage interface {
	// Create stores a new assessment record.
	Create(ctx context.Context, assessment *models.Assessment) error

	// Get retrieves an assessment by ID.
	Get(ctx context.Context, id string) (*models.Assessment, error)

	// List returns assessments ordered by creation time descending.
	List(ctx context.Context, limit int) ([]*models.Assessment, error)

	// UpdateStatus transitions an assessment's status, attaching results
	// or an error message for terminal states.
	UpdateStatus(ctx context.Context, id string, status models.AssessmentStatus, results *models.AnalysisResult, errMsg string) error

	// Delete removes an assessment by ID.
	Delete(ctx context.Context, id string) error

	// PruneOldest deletes all but the keepCount most recent assessments
	// and returns the number removed.
	PruneOldest(ctx context.Context, keepCount int) (int, error)
}

// StorageManager provides access to all storage interfaces.
type StorageManager interface {
	AssessmentStorage() AssessmentStorage
	Close() error
}
