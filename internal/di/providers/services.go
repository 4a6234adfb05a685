package providers

import (
	"github.com/samber/do/v2"

	"github.com/inkleafapp/inkleaf-server/internal/config"
	"github.com/inkleafapp/inkleaf-server/internal/download"
	"github.com/inkleafapp/inkleaf-server/internal/logger"
	"github.com/inkleafapp/inkleaf-server/internal/mirror"
	"github.com/inkleafapp/inkleaf-server/internal/resolver"
	"github.com/inkleafapp/inkleaf-server/internal/retry"
	"github.com/inkleafapp/inkleaf-server/internal/search"
	"github.com/inkleafapp/inkleaf-server/internal/service"
	"github.com/inkleafapp/inkleaf-server/internal/source/dbooks"
)

// ProvideResolver provides the download-link resolver.
func ProvideResolver(i do.Injector) (*resolver.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	dbooksClient := do.MustInvoke[*dbooks.Client](i)

	var extractor resolver.LinkExtractor
	if cfg.Store.LinkExtractorURL != "" {
		extractor = resolver.NewHTTPExtractor(cfg.Store.LinkExtractorURL)
		log.Info("link extractor enabled", "url", cfg.Store.LinkExtractorURL)
	}

	return resolver.New(dbooksClient, extractor, log.Logger), nil
}

// ProvideDownloader provides the resumable file downloader.
func ProvideDownloader(i do.Injector) (*download.Downloader, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	retrier := do.MustInvoke[*retry.Executor](i)

	return download.New(cfg.Download.Dir, retrier, log.Logger), nil
}

// ProvideBookstoreService provides the book-store facade. No library
// collaborator is wired here; embedding applications inject their own.
func ProvideBookstoreService(i do.Injector) (*service.BookstoreService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	aggregator := do.MustInvoke[*search.Aggregator](i)
	res := do.MustInvoke[*resolver.Resolver](i)
	downloader := do.MustInvoke[*download.Downloader](i)
	tracker := do.MustInvoke[*mirror.HealthTracker](i)

	return service.NewBookstoreService(aggregator, res, downloader, tracker, nil, log.Logger), nil
}
