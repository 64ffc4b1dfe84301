//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"hoopgraph-backend/internal/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideTracer,
	ProvideErrorHandler,
	ProvideSupabaseClient,
	ProvideFetcher,
	ProvideGraphStore,
	ProvideGraphWatcher,
	ProvideMetadataLookup,
	ProvideFinder,
	ProvideTokenVerifier,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// releases resources in reverse construction order.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
