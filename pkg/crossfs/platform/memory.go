package platform

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/cross-org/fs/pkg/crossfs"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// Memory keeps a filesystem in process memory. It has no symlinks, devices,
// ownership or inode numbers, and cannot report changes.
type Memory struct {
	fs afero.Fs
}

// NewMemory returns an empty in-memory platform.
func NewMemory() *Memory {
	return &Memory{fs: afero.NewMemMapFs()}
}

// MkdirAll creates path and any missing parents.
func (m *Memory) MkdirAll(path string, perm os.FileMode) error {
	return m.fs.MkdirAll(m.clean(path), perm)
}

// WriteFile creates or truncates the file at path and writes data to it.
func (m *Memory) WriteFile(path string, data []byte, perm os.FileMode) error {
	path = m.clean(path)
	if err := m.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(m.fs, path, data, perm)
}

// Remove deletes path and everything below it.
func (m *Memory) Remove(path string) error {
	return m.fs.RemoveAll(m.clean(path))
}

// Descriptor implements crossfs.Platform.
func (m *Memory) Descriptor() crossfs.Descriptor {
	return crossfs.Descriptor{Name: NameMemory, Watch: crossfs.WatchNone}
}

// Stat implements crossfs.Platform.
func (m *Memory) Stat(path string) (crossfs.StatResult, error) {
	fi, err := m.fs.Stat(m.clean(path))
	if err != nil {
		return crossfs.StatResult{}, classifyMemory(path, err)
	}
	return mapMemInfo(fi), nil
}

// Lstat implements crossfs.Platform. Without symlinks it matches Stat.
func (m *Memory) Lstat(path string) (crossfs.StatResult, error) {
	return m.Stat(path)
}

// ReadDir implements crossfs.Platform. Entries are sorted by name.
func (m *Memory) ReadDir(path string) ([]fs.DirEntry, error) {
	infos, err := afero.ReadDir(m.fs, m.clean(path))
	if err != nil {
		return nil, classifyMemory(path, err)
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, fi := range infos {
		entries[i] = fs.FileInfoToDirEntry(fi)
	}
	return entries, nil
}

// Open implements crossfs.Platform.
func (m *Memory) Open(path string) (io.ReadCloser, error) {
	f, err := m.fs.Open(m.clean(path))
	if err != nil {
		return nil, classifyMemory(path, err)
	}
	return f, nil
}

// Abs implements crossfs.Platform. Relative paths are rooted at the
// filesystem root.
func (m *Memory) Abs(path string) (string, error) {
	return m.clean(path), nil
}

func (m *Memory) clean(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(string(filepath.Separator), path)
}

func classifyMemory(path string, err error) error {
	if domainerrors.Is(err, fs.ErrNotExist) {
		return domainerrors.NotFound(path, err)
	}
	return err
}

// mapMemInfo converts the file info of the in-memory store.
func mapMemInfo(fi os.FileInfo) crossfs.StatResult {
	m := fi.Mode()
	return crossfs.StatResult{
		IsFile:      m.IsRegular(),
		IsDirectory: m.IsDir(),
		Size:        fi.Size(),

		Mtime: ptr(fi.ModTime()),
		Mode:  ptr(posixMode(m)),

		IsBlockDevice: ptr(false),
		IsCharDevice:  ptr(false),
		IsFifo:        ptr(false),
		IsSocket:      ptr(false),
	}
}
