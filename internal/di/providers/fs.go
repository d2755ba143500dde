package providers

import (
	"github.com/samber/do/v2"

	"github.com/cross-org/fs/internal/config"
	"github.com/cross-org/fs/internal/logger"
	"github.com/cross-org/fs/pkg/crossfs"
	"github.com/cross-org/fs/pkg/crossfs/platform"
	"github.com/cross-org/fs/pkg/crossfs/watch"
)

// ProvidePlatform selects the filesystem platform once for the process.
func ProvidePlatform(i do.Injector) (crossfs.Platform, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	p, err := platform.ByName(cfg.FS.Platform)
	if err != nil {
		return nil, err
	}
	desc := p.Descriptor()
	log.Debug("platform selected", "requested", cfg.FS.Platform, "name", desc.Name, "watch", desc.Watch.String())
	return p, nil
}

// ProvideFS provides the filesystem operations on the selected platform.
func ProvideFS(i do.Injector) (*crossfs.FS, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	p := do.MustInvoke[crossfs.Platform](i)

	return crossfs.New(p, log.WithField("component", "fs").Logger, crossfs.Options{Concurrency: cfg.FS.Concurrency}), nil
}

// WatcherHandle wraps the change watcher with shutdown capability.
type WatcherHandle struct {
	*watch.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	return h.Close()
}

// ProvideWatcher provides the change watcher. It stays idle until a watch
// command ranges over it.
func ProvideWatcher(i do.Injector) (*WatcherHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	p := do.MustInvoke[crossfs.Platform](i)

	return &WatcherHandle{Watcher: watch.New(p, log.WithField("component", "watch").Logger)}, nil
}
