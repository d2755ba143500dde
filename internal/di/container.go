// Package di wires the crossfs command together with samber/do.
package di

import (
	"github.com/samber/do/v2"

	"github.com/cross-org/fs/internal/cli"
	"github.com/cross-org/fs/internal/config"
	"github.com/cross-org/fs/internal/di/providers"
	"github.com/cross-org/fs/internal/logger"
	"github.com/cross-org/fs/pkg/crossfs"
)

// NewContainer creates the container for an already loaded configuration.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Filesystem layer
	do.Provide(injector, providers.ProvidePlatform)
	do.Provide(injector, providers.ProvideFS)
	do.Provide(injector, providers.ProvideWatcher)

	// Command line
	do.Provide(injector, providers.ProvideCLI)

	return injector
}

// Bootstrap builds every service eagerly so configuration problems surface
// before a command runs.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[crossfs.Platform](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*crossfs.FS](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.WatcherHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*cli.App](injector); err != nil {
		return err
	}
	return nil
}
