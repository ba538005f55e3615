package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
)

// Manager implements interfaces.StorageManager for Badger.
type Manager struct {
	db          *BadgerDB
	assessments interfaces.AssessmentStorage
	logger      arbor.ILogger
}

// NewManager opens the database and wires the stores.
func NewManager(config *common.Config, logger arbor.ILogger) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:          db,
		assessments: NewAssessmentStorage(db, logger),
		logger:      logger,
	}, nil
}

// AssessmentStorage returns the assessment store.
func (m *Manager) AssessmentStorage() interfaces.AssessmentStorage {
	return m.assessments
}

// Close closes the database connection.
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing storage manager")
	return m.db.Close()
}
