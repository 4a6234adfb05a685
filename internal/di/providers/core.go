// Package providers contains the DI provider functions for every service.
package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/inkleafapp/inkleaf-server/internal/config"
	"github.com/inkleafapp/inkleaf-server/internal/logger"
	"github.com/inkleafapp/inkleaf-server/internal/retry"
)

const shutdownTimeout = 10 * time.Second

// ProvideConfig loads application configuration.
func ProvideConfig(_ do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the application logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return logger.New(logger.Config{
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}), nil
}

// ProvideRetryExecutor provides the shared backoff executor. All sources
// and the downloader share one; it carries no per-operation state.
func ProvideRetryExecutor(i do.Injector) (*retry.Executor, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return retry.New(log.Logger), nil
}
