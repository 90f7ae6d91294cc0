//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/treb-dao/internal/adapters"
	"github.com/trebuchet-org/treb-dao/internal/config"
	"github.com/trebuchet-org/treb-dao/internal/logging"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewSenderBook,
		usecase.NewConfirmer,
		usecase.NewSubmitter,
		usecase.NewPlanDAO,
		usecase.NewProvisionComponents,
		usecase.NewLinkPipeline,
		usecase.NewConfigurePermissions,
		usecase.NewReplayActions,
		usecase.NewDeployDAO,

		// App
		NewApp,
	)
	return nil, nil
}
