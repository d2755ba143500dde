//go:build !linux

package watch

import (
	"log/slog"

	domainerrors "github.com/cross-org/fs/pkg/errors"
)

func newInotifySource(*subscription, *slog.Logger) (source, error) {
	return nil, domainerrors.Unsupported("inotify is only available on linux")
}
