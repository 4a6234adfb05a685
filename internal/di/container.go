// Package di provides dependency injection configuration for the Inkleaf server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/inkleafapp/inkleaf-server/internal/config"
	"github.com/inkleafapp/inkleaf-server/internal/di/providers"
	"github.com/inkleafapp/inkleaf-server/internal/download"
	"github.com/inkleafapp/inkleaf-server/internal/logger"
	"github.com/inkleafapp/inkleaf-server/internal/mirror"
	"github.com/inkleafapp/inkleaf-server/internal/resolver"
	"github.com/inkleafapp/inkleaf-server/internal/retry"
	"github.com/inkleafapp/inkleaf-server/internal/search"
	"github.com/inkleafapp/inkleaf-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideRetryExecutor)

	// Store layer
	do.Provide(injector, providers.ProvideResultCache)
	do.Provide(injector, providers.ProvideMirrorTracker)
	do.Provide(injector, providers.ProvideDbooksClient)
	do.Provide(injector, providers.ProvideLibgenClient)
	do.Provide(injector, providers.ProvideAggregator)
	do.Provide(injector, providers.ProvideResolver)
	do.Provide(injector, providers.ProvideDownloader)
	do.Provide(injector, providers.ProvideBookstoreService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap triggers lazy initialization of every service so startup
// failures surface before the server accepts traffic.
func Bootstrap(injector *do.RootScope) error {
	invocations := []func() error{
		func() error { _, err := do.Invoke[*config.Config](injector); return err },
		func() error { _, err := do.Invoke[*logger.Logger](injector); return err },
		func() error { _, err := do.Invoke[*retry.Executor](injector); return err },
		func() error { _, err := do.Invoke[*providers.ResultCacheHandle](injector); return err },
		func() error { _, err := do.Invoke[*mirror.HealthTracker](injector); return err },
		func() error { _, err := do.Invoke[*search.Aggregator](injector); return err },
		func() error { _, err := do.Invoke[*resolver.Resolver](injector); return err },
		func() error { _, err := do.Invoke[*download.Downloader](injector); return err },
		func() error { _, err := do.Invoke[*service.BookstoreService](injector); return err },
		func() error { _, err := do.Invoke[*providers.HTTPServerHandle](injector); return err },
	}
	for _, invoke := range invocations {
		if err := invoke(); err != nil {
			return err
		}
	}
	return nil
}
