package providers

import (
	"github.com/samber/do/v2"

	"github.com/inkleafapp/inkleaf-server/internal/breaker"
	"github.com/inkleafapp/inkleaf-server/internal/cache"
	"github.com/inkleafapp/inkleaf-server/internal/config"
	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/logger"
	"github.com/inkleafapp/inkleaf-server/internal/mirror"
	"github.com/inkleafapp/inkleaf-server/internal/retry"
	"github.com/inkleafapp/inkleaf-server/internal/search"
	"github.com/inkleafapp/inkleaf-server/internal/source/dbooks"
	"github.com/inkleafapp/inkleaf-server/internal/source/libgen"
)

// ResultCacheHandle wraps the badger-backed result cache with shutdown
// capability. Cache may be nil when caching is disabled.
type ResultCacheHandle struct {
	Cache *cache.ResultCache
}

// Shutdown implements do.Shutdownable.
func (h *ResultCacheHandle) Shutdown() error {
	if h.Cache == nil {
		return nil
	}
	return h.Cache.Close()
}

// ProvideResultCache provides the search result cache.
func ProvideResultCache(i do.Injector) (*ResultCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Cache.Enabled {
		log.Info("result cache disabled")
		return &ResultCacheHandle{}, nil
	}

	c, err := cache.New(cfg.Cache.Path, cfg.Cache.TTL, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("result cache opened", "path", cfg.Cache.Path, "ttl", cfg.Cache.TTL)
	return &ResultCacheHandle{Cache: c}, nil
}

// ProvideMirrorTracker provides the process-lifetime mirror health state.
func ProvideMirrorTracker(i do.Injector) (*mirror.HealthTracker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return mirror.NewHealthTracker(cfg.Store.LibgenMirrors), nil
}

// ProvideDbooksClient provides the single-endpoint source adapter.
func ProvideDbooksClient(i do.Injector) (*dbooks.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	retrier := do.MustInvoke[*retry.Executor](i)

	return dbooks.New(cfg.Store.DbooksBaseURL, retrier, log.Logger), nil
}

// ProvideLibgenClient provides the multi-mirror source adapter.
func ProvideLibgenClient(i do.Injector) (*libgen.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	retrier := do.MustInvoke[*retry.Executor](i)
	tracker := do.MustInvoke[*mirror.HealthTracker](i)

	return libgen.New(cfg.Store.LibgenMirrors, tracker, retrier, log.Logger), nil
}

// ProvideAggregator provides the search aggregator with its two circuit
// breakers. The breakers live here: they are process-lifetime state owned
// by exactly one aggregator.
func ProvideAggregator(i do.Injector) (*search.Aggregator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	dbooksClient := do.MustInvoke[*dbooks.Client](i)
	libgenClient := do.MustInvoke[*libgen.Client](i)
	cacheHandle := do.MustInvoke[*ResultCacheHandle](i)

	dbooksBreaker := breaker.New(cfg.Store.DbooksFailureThreshold, cfg.Store.DbooksResetTimeout)
	libgenBreaker := breaker.New(cfg.Store.LibgenFailureThreshold, cfg.Store.LibgenResetTimeout)

	enabled := domain.SourceToggles{
		Dbooks: cfg.Store.EnableDbooks,
		Libgen: cfg.Store.EnableLibgen,
	}

	return search.NewAggregator(
		dbooksClient,
		libgenClient,
		dbooksBreaker,
		libgenBreaker,
		enabled,
		cacheHandle.Cache,
		log.Logger,
	), nil
}
