//go:build darwin || freebsd

package platform

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/cross-org/fs/pkg/crossfs"
)

const unixWatch = crossfs.WatchFsnotify

func birthtime(_ string, st *unix.Stat_t, _ bool) *time.Time {
	return ptr(timespec(st.Btim))
}
