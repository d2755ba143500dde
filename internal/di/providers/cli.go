package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/cross-org/fs/internal/cli"
	"github.com/cross-org/fs/internal/config"
	"github.com/cross-org/fs/internal/logger"
	"github.com/cross-org/fs/pkg/crossfs"
)

// ProvideCLI provides the command dispatcher bound to stdout.
func ProvideCLI(i do.Injector) (*cli.App, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	fsys := do.MustInvoke[*crossfs.FS](i)
	w := do.MustInvoke[*WatcherHandle](i)

	return cli.New(cli.Deps{
		FS:            fsys,
		Watcher:       w.Watcher,
		Logger:        log,
		HashAlgorithm: cfg.FS.HashAlgorithm,
		Stdout:        os.Stdout,
	}), nil
}
