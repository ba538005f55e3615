// Package app wires the application components together.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/handlers"
	"github.com/solvency-io/solvency/internal/interfaces"
	"github.com/solvency-io/solvency/internal/services/analysis"
	"github.com/solvency-io/solvency/internal/services/events"
	"github.com/solvency-io/solvency/internal/services/llm"
	"github.com/solvency-io/solvency/internal/services/reports"
	"github.com/solvency-io/solvency/internal/services/scheduler"
	"github.com/solvency-io/solvency/internal/storage/badger"
)

// App holds all application components and dependencies.
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService

	LLMFactory       *llm.Factory
	AnalysisService  interfaces.AnalysisService
	ReportService    *reports.Service
	RetentionService *scheduler.RetentionService

	APIHandler        *handlers.APIHandler
	AnalysisHandler   *handlers.AnalysisHandler
	AssessmentHandler *handlers.AssessmentHandler
	WSHandler         *handlers.WebSocketHandler
}

// New builds the application from configuration.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	a.EventService = events.NewService(logger)
	a.LLMFactory = llm.NewFactory(config, logger)

	orchestrator, err := analysis.NewOrchestrator(config, a.LLMFactory, a.EventService, logger)
	if err != nil {
		a.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize analysis orchestrator: %w", err)
	}
	a.AnalysisService = orchestrator

	a.ReportService = reports.NewService(logger)
	a.RetentionService = scheduler.NewRetentionService(
		&config.Retention,
		storageManager.AssessmentStorage(),
		logger,
	)

	a.APIHandler = handlers.NewAPIHandler(config, logger)
	a.AnalysisHandler = handlers.NewAnalysisHandler(
		a.AnalysisService,
		storageManager.AssessmentStorage(),
		a.EventService,
		logger,
	)
	a.AssessmentHandler = handlers.NewAssessmentHandler(
		storageManager.AssessmentStorage(),
		a.ReportService,
		logger,
	)

	wsHandler, err := handlers.NewWebSocketHandler(a.EventService, &config.WebSocket, logger)
	if err != nil {
		a.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize websocket handler: %w", err)
	}
	a.WSHandler = wsHandler

	return a, nil
}

// Start launches background services.
func (a *App) Start() error {
	return a.RetentionService.Start()
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	a.RetentionService.Stop()

	if err := a.LLMFactory.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
	}
	if err := a.EventService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close event service")
	}
	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage")
		return err
	}
	return nil
}
