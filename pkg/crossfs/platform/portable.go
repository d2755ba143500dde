package platform

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cross-org/fs/pkg/crossfs"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// Portable works on any operating system through the os package. It reports
// only what fs.FileInfo carries; device numbers, ownership, link counts,
// block sizes, access and birth times stay nil.
type Portable struct{}

// NewPortable returns the portable platform.
func NewPortable() *Portable {
	return &Portable{}
}

// Descriptor implements crossfs.Platform.
func (*Portable) Descriptor() crossfs.Descriptor {
	return crossfs.Descriptor{Name: NamePortable, Watch: crossfs.WatchFsnotify}
}

// Stat implements crossfs.Platform.
func (*Portable) Stat(path string) (crossfs.StatResult, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return crossfs.StatResult{}, classifyPortable(path, err)
	}
	return mapFileInfo(fi), nil
}

// Lstat implements crossfs.Platform.
func (*Portable) Lstat(path string) (crossfs.StatResult, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return crossfs.StatResult{}, classifyPortable(path, err)
	}
	return mapFileInfo(fi), nil
}

// ReadDir implements crossfs.Platform.
func (*Portable) ReadDir(path string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, classifyPortable(path, err)
	}
	return entries, nil
}

// Open implements crossfs.Platform.
func (*Portable) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classifyPortable(path, err)
	}
	return f, nil
}

// Abs implements crossfs.Platform.
func (*Portable) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

func classifyPortable(path string, err error) error {
	if domainerrors.Is(err, fs.ErrNotExist) {
		return domainerrors.NotFound(path, err)
	}
	return err
}

// mapFileInfo converts an os.FileInfo.
func mapFileInfo(fi fs.FileInfo) crossfs.StatResult {
	m := fi.Mode()
	return crossfs.StatResult{
		IsFile:      m.IsRegular(),
		IsDirectory: m.IsDir(),
		IsSymlink:   m&fs.ModeSymlink != 0,
		Size:        fi.Size(),

		Mtime: ptr(fi.ModTime()),
		Mode:  ptr(posixMode(m)),

		IsBlockDevice: ptr(m&fs.ModeDevice != 0 && m&fs.ModeCharDevice == 0),
		IsCharDevice:  ptr(m&fs.ModeCharDevice != 0),
		IsFifo:        ptr(m&fs.ModeNamedPipe != 0),
		IsSocket:      ptr(m&fs.ModeSocket != 0),
	}
}
