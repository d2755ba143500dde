//go:build linux || darwin || freebsd || netbsd || openbsd

package platform

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cross-org/fs/pkg/crossfs"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// Unix reads status straight from the stat(2) family and reports every
// field the kernel provides.
type Unix struct{}

// NewUnix returns the unix platform.
func NewUnix() *Unix {
	return &Unix{}
}

func newUnix() crossfs.Platform {
	return NewUnix()
}

// Native returns the unix platform.
func Native() crossfs.Platform {
	return NewUnix()
}

// Descriptor implements crossfs.Platform.
func (*Unix) Descriptor() crossfs.Descriptor {
	return crossfs.Descriptor{Name: NameUnix, Watch: unixWatch}
}

// Stat implements crossfs.Platform.
func (*Unix) Stat(path string) (crossfs.StatResult, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return crossfs.StatResult{}, classifyUnix(path, "stat", err)
	}
	return mapStatT(&st, birthtime(path, &st, true)), nil
}

// Lstat implements crossfs.Platform.
func (*Unix) Lstat(path string) (crossfs.StatResult, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return crossfs.StatResult{}, classifyUnix(path, "lstat", err)
	}
	return mapStatT(&st, birthtime(path, &st, false)), nil
}

// ReadDir implements crossfs.Platform.
func (*Unix) ReadDir(path string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, classifyUnix(path, "", err)
	}
	return entries, nil
}

// Open implements crossfs.Platform.
func (*Unix) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classifyUnix(path, "", err)
	}
	return f, nil
}

// Abs implements crossfs.Platform.
func (*Unix) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

// classifyUnix turns ENOENT into a NotFound error. Other errors are
// returned as they are, wrapped in a PathError when they are bare errnos.
func classifyUnix(path, op string, err error) error {
	if errno, ok := err.(unix.Errno); ok && op != "" {
		err = &fs.PathError{Op: op, Path: path, Err: errno}
	}
	if domainerrors.Is(err, unix.ENOENT) {
		return domainerrors.NotFound(path, err)
	}
	return err
}

// mapStatT converts a stat(2) result.
func mapStatT(st *unix.Stat_t, birth *time.Time) crossfs.StatResult {
	mode := uint32(st.Mode)
	typ := mode & modeTypeMask

	return crossfs.StatResult{
		IsFile:      typ == modeRegular,
		IsDirectory: typ == modeDir,
		IsSymlink:   typ == modeSymlink,
		Size:        st.Size,

		Mtime:     ptr(timespec(st.Mtim)),
		Atime:     ptr(timespec(st.Atim)),
		Birthtime: birth,

		Dev:     ptr(uint64(st.Dev)),
		Ino:     ptr(uint64(st.Ino)),
		Mode:    ptr(mode),
		Nlink:   ptr(uint64(st.Nlink)),
		UID:     ptr(st.Uid),
		GID:     ptr(st.Gid),
		Rdev:    ptr(uint64(st.Rdev)),
		Blksize: ptr(int64(st.Blksize)),
		Blocks:  ptr(int64(st.Blocks)),

		IsBlockDevice: ptr(typ == modeBlock),
		IsCharDevice:  ptr(typ == modeChar),
		IsFifo:        ptr(typ == modeFifo),
		IsSocket:      ptr(typ == modeSocket),
	}
}

func timespec(ts unix.Timespec) time.Time {
	return time.Unix(ts.Unix())
}
