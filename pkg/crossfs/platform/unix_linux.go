package platform

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/cross-org/fs/pkg/crossfs"
)

const unixWatch = crossfs.WatchInotify

// birthtime asks statx for the creation time. Filesystems that do not
// record it leave the result nil.
func birthtime(path string, _ *unix.Stat_t, follow bool) *time.Time {
	flags := unix.AT_STATX_SYNC_AS_STAT
	if !follow {
		flags |= unix.AT_SYMLINK_NOFOLLOW
	}
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, flags, unix.STATX_BTIME, &stx); err != nil {
		return nil
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return nil
	}
	return ptr(time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)))
}
