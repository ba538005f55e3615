package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/solvency-io/solvency/internal/interfaces"
	"github.com/solvency-io/solvency/internal/models"
)

// AssessmentStorage implements interfaces.AssessmentStorage on Badger.
type AssessmentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAssessmentStorage creates a new AssessmentStorage instance.
func NewAssessmentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AssessmentStorage {
	return &AssessmentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AssessmentStorage) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment == nil {
		return fmt.Errorf("assessment is required")
	}
	if len(assessment.CompanyNames) == 0 {
		return fmt.Errorf("assessment requires at least one company name")
	}

	if assessment.ID == "" {
		assessment.ID = uuid.New().String()
	}
	if assessment.Status == "" {
		assessment.Status = models.AssessmentPending
	}
	now := time.Now()
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = now
	}
	assessment.UpdatedAt = now

	if err := s.db.Store().Insert(assessment.ID, assessment); err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}

	s.logger.Debug().
		Str("assessment_id", assessment.ID).
		Str("status", string(assessment.Status)).
		Int("companies", len(assessment.CompanyNames)).
		Msg("Assessment created")
	return nil
}

func (s *AssessmentStorage) Get(ctx context.Context, id string) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := s.db.Store().Get(id, &assessment); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return &assessment, nil
}

func (s *AssessmentStorage) List(ctx context.Context, limit int) ([]*models.Assessment, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var assessments []models.Assessment
	if err := s.db.Store().Find(&assessments, query); err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	result := make([]*models.Assessment, len(assessments))
	for i := range assessments {
		result[i] = &assessments[i]
	}
	return result, nil
}

func (s *AssessmentStorage) UpdateStatus(ctx context.Context, id string, status models.AssessmentStatus, results *models.AnalysisResult, errMsg string) error {
	assessment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	assessment.Status = status
	assessment.UpdatedAt = time.Now()
	if results != nil {
		assessment.Results = results
	}
	assessment.Error = errMsg

	if err := s.db.Store().Update(id, assessment); err != nil {
		return fmt.Errorf("failed to update assessment status: %w", err)
	}

	s.logger.Debug().
		Str("assessment_id", id).
		Str("status", string(status)).
		Msg("Assessment status updated")
	return nil
}

func (s *AssessmentStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Assessment{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return interfaces.ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	return nil
}

// PruneOldest deletes all but the keepCount most recent assessments.
// Records still in flight (pending/processing) are never pruned.
func (s *AssessmentStorage) PruneOldest(ctx context.Context, keepCount int) (int, error) {
	if keepCount < 0 {
		keepCount = 0
	}

	var assessments []models.Assessment
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&assessments, query); err != nil {
		return 0, fmt.Errorf("failed to list assessments for pruning: %w", err)
	}

	pruned := 0
	kept := 0
	for i := range assessments {
		a := &assessments[i]
		if kept < keepCount {
			kept++
			continue
		}
		if !a.Status.IsTerminal() {
			continue
		}
		if err := s.db.Store().Delete(a.ID, &models.Assessment{}); err != nil {
			s.logger.Warn().Err(err).Str("assessment_id", a.ID).Msg("Failed to prune assessment")
			continue
		}
		pruned++
	}

	if pruned > 0 {
		s.logger.Info().
			Int("pruned", pruned).
			Int("kept", keepCount).
			Msg("Old assessments pruned")
	}
	return pruned, nil
}
