//go:build netbsd || openbsd

package platform

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/cross-org/fs/pkg/crossfs"
)

const unixWatch = crossfs.WatchFsnotify

func birthtime(string, *unix.Stat_t, bool) *time.Time {
	return nil
}
