//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/urbansims/microgreens/internal/bootstrap"
	"github.com/urbansims/microgreens/internal/domain/auth"
	"github.com/urbansims/microgreens/internal/domain/dashboard"
	"github.com/urbansims/microgreens/internal/infra/backendapi"
	"github.com/urbansims/microgreens/internal/infra/config"
	"github.com/urbansims/microgreens/internal/infra/seedcatalog"
	httpiface "github.com/urbansims/microgreens/internal/interface/http"
	"github.com/urbansims/microgreens/pkg/logger"
	"github.com/urbansims/microgreens/pkg/metrics"
)

var storageSet = wire.NewSet(
	providePostgresPool,
	provideTrackerStore,
	provideSeedRepository,
	provideCropRepository,
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		storageSet,
		provideAuthConfig,
		provideTrackerConfig,
		provideDashboardConfig,
		provideAuthRepository,
		provideValkeyClient,
		providePredictionCache,
		provideJobQueue,
		providePhotoStorage,
		provideTrackerService,
		provideAssistant,
		provideDashboardAssistant,
		provideUsageReporter,
		provideBackendClient,
		auth.NewService,
		dashboard.NewService,
		seedcatalog.NewImporter,
		metrics.NewRequestCounter,
		wire.Bind(new(dashboard.Backend), new(*backendapi.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}

func initializeSeedImporter() (*seedcatalog.Importer, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		storageSet,
		seedcatalog.NewImporter,
	)
	return nil, nil, nil
}
