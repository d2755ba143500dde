// Package providers contains dependency injection providers for the crossfs
// command.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/cross-org/fs/internal/config"
	"github.com/cross-org/fs/internal/logger"
)

// ProvideLogger provides the structured logger. Logs go to stderr.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development" && cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
	})

	log.WithFields(map[string]any{
		"environment": cfg.App.Environment,
		"log_level":   cfg.Logger.Level,
		"platform":    cfg.FS.Platform,
		"concurrency": cfg.FS.Concurrency,
	}).Debug("crossfs starting")

	return log, nil
}
