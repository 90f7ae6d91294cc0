package app

import (
	"log/slog"

	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Use cases
	PlanDAO   *usecase.PlanDAO
	DeployDAO *usecase.DeployDAO
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	planDAO *usecase.PlanDAO,
	deployDAO *usecase.DeployDAO,
) (*App, error) {
	return &App{
		Config:    cfg,
		Log:       log,
		PlanDAO:   planDAO,
		DeployDAO: deployDAO,
	}, nil
}
