package crossfs

import (
	"io"
	"io/fs"
)

// WatchMechanism names the native change notification facility a platform
// offers.
type WatchMechanism int

const (
	// WatchNone means the platform cannot report changes.
	WatchNone WatchMechanism = iota
	// WatchInotify is the Linux inotify interface. Readers stop when their
	// cancellation token fires.
	WatchInotify
	// WatchFsnotify is the portable fsnotify library. Subscriptions are
	// closed directly.
	WatchFsnotify
)

// String returns the mechanism name.
func (m WatchMechanism) String() string {
	switch m {
	case WatchInotify:
		return "inotify"
	case WatchFsnotify:
		return "fsnotify"
	default:
		return "none"
	}
}

// Descriptor identifies a platform and its capabilities. It is decided once
// when the platform is constructed.
type Descriptor struct {
	Name  string
	Watch WatchMechanism
}

// Platform is the native filesystem an FS operates on.
//
// Stat and Lstat must return an error matching errors.ErrNotFound from
// pkg/errors when nothing exists at the path, and any other failure
// unchanged. Implementations must be safe for concurrent use.
type Platform interface {
	Descriptor() Descriptor
	Stat(path string) (StatResult, error)
	Lstat(path string) (StatResult, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	Open(path string) (io.ReadCloser, error)
	Abs(path string) (string, error)
}
