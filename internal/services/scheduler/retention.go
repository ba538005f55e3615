// Package scheduler runs the periodic assessment retention sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
)

// RetentionService prunes old assessments on a cron schedule so the
// store holds only the most recent records.
type RetentionService struct {
	config  *common.RetentionConfig
	storage interfaces.AssessmentStorage
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	running bool
}

// NewRetentionService creates the retention sweeper. Schedules use the
// six-field cron format with seconds.
func NewRetentionService(config *common.RetentionConfig, storage interfaces.AssessmentStorage, logger arbor.ILogger) *RetentionService {
	return &RetentionService{
		config:  config,
		storage: storage,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
	}
}

// Start registers the sweep and starts the cron runner. Disabled
// configuration is a no-op.
func (s *RetentionService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Assessment retention sweep disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("retention service already running")
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "0 */10 * * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid retention schedule '%s': %w", schedule, err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Int("max_kept", s.config.MaxKept).
		Msg("Assessment retention sweep started")
	return nil
}

// Stop halts the cron runner, waiting for an in-progress sweep.
func (s *RetentionService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info().Msg("Assessment retention sweep stopped")
}

// Sweep runs one retention pass immediately.
func (s *RetentionService) Sweep(ctx context.Context) (int, error) {
	maxKept := s.config.MaxKept
	if maxKept <= 0 {
		maxKept = 5
	}
	return s.storage.PruneOldest(ctx, maxKept)
}

func (s *RetentionService) sweep() {
	pruned, err := s.Sweep(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("Assessment retention sweep failed")
		return
	}
	if pruned > 0 {
		s.logger.Debug().Int("pruned", pruned).Msg("Retention sweep completed")
	}
}
