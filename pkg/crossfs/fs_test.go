package crossfs_test

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cross-org/fs/pkg/crossfs"
	"github.com/cross-org/fs/pkg/crossfs/platform"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// faulty wraps a platform and fails selected calls.
type faulty struct {
	crossfs.Platform
	statErr    map[string]error
	readDirErr map[string]error
}

func (f *faulty) Stat(path string) (crossfs.StatResult, error) {
	if err, ok := f.statErr[path]; ok {
		return crossfs.StatResult{}, err
	}
	return f.Platform.Stat(path)
}

func (f *faulty) ReadDir(path string) ([]fs.DirEntry, error) {
	if err, ok := f.readDirErr[path]; ok {
		return nil, err
	}
	return f.Platform.ReadDir(path)
}

func eacces(path string) error {
	return &fs.PathError{Op: "open", Path: path, Err: syscall.EACCES}
}

// memoryFixture builds /data/top.txt ("x") and /data/sub/nested.txt
// ("hello world").
func memoryFixture(t *testing.T) *platform.Memory {
	t.Helper()
	m := platform.NewMemory()
	require.NoError(t, m.WriteFile("/data/top.txt", []byte("x"), 0o644))
	require.NoError(t, m.WriteFile("/data/sub/nested.txt", []byte("hello world"), 0o644))
	return m
}

// diskFixture builds the same tree in a temporary directory.
func diskFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.txt"), []byte("hello world"), 0o644))
	return dir
}

func TestStat_NotFound(t *testing.T) {
	ctx := context.Background()
	for _, p := range []crossfs.Platform{platform.Native(), platform.NewPortable(), platform.NewMemory()} {
		t.Run(p.Descriptor().Name, func(t *testing.T) {
			fsys := crossfs.New(p, nil, crossfs.Options{})
			missing := filepath.Join(t.TempDir(), "missing")

			_, err := fsys.Stat(ctx, missing)
			require.Error(t, err)
			assert.True(t, domainerrors.IsNotFound(err))

			ok, err := fsys.Exists(ctx, missing)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPredicates(t *testing.T) {
	ctx := context.Background()
	dir := diskFixture(t)
	fsys := crossfs.New(platform.Native(), nil, crossfs.Options{})
	file := filepath.Join(dir, "top.txt")

	tests := []struct {
		name string
		fn   func(context.Context, string) (bool, error)
		path string
		want bool
	}{
		{"exists file", fsys.Exists, file, true},
		{"exists dir", fsys.Exists, dir, true},
		{"exists missing", fsys.Exists, filepath.Join(dir, "nope"), false},
		{"isdir dir", fsys.IsDir, dir, true},
		{"isdir file", fsys.IsDir, file, false},
		{"isdir missing", fsys.IsDir, filepath.Join(dir, "nope"), false},
		{"isfile file", fsys.IsFile, file, true},
		{"isfile dir", fsys.IsFile, dir, false},
		{"issymlink file", fsys.IsSymlink, file, false},
		{"issymlink missing", fsys.IsSymlink, filepath.Join(dir, "nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(ctx, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsSymlink_UsesLinkItself(t *testing.T) {
	ctx := context.Background()
	dir := diskFixture(t)
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(filepath.Join(dir, "top.txt"), link))

	fsys := crossfs.New(platform.Native(), nil, crossfs.Options{})
	ok, err := fsys.IsSymlink(ctx, link)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fsys.IsFile(ctx, link)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPredicates_PropagateOtherErrors(t *testing.T) {
	ctx := context.Background()
	m := memoryFixture(t)
	p := &faulty{Platform: m, statErr: map[string]error{"/data/top.txt": eacces("/data/top.txt")}}
	fsys := crossfs.New(p, nil, crossfs.Options{})

	_, err := fsys.Exists(ctx, "/data/top.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EACCES)
	assert.False(t, domainerrors.IsNotFound(err))

	_, err = fsys.IsDir(ctx, "/data/top.txt")
	assert.ErrorIs(t, err, syscall.EACCES)
}

func TestStat_ExactlyOneKind(t *testing.T) {
	ctx := context.Background()
	dir := diskFixture(t)
	fsys := crossfs.New(platform.Native(), nil, crossfs.Options{})

	for _, p := range []string{dir, filepath.Join(dir, "top.txt"), filepath.Join(dir, "sub")} {
		st, err := fsys.Stat(ctx, p)
		require.NoError(t, err)
		n := 0
		for _, b := range []bool{st.IsFile, st.IsDirectory, st.IsSymlink} {
			if b {
				n++
			}
		}
		assert.Equal(t, 1, n, p)
	}
}

func TestNew_UsesConcurrencyDefault(t *testing.T) {
	fsys := crossfs.New(platform.NewMemory(), nil, crossfs.Options{Concurrency: -1})
	assert.Equal(t, platform.NameMemory, fsys.Platform().Descriptor().Name)

	_, err := fsys.Stat(context.Background(), "/")
	assert.NoError(t, err)
}

func ExampleFS_Find() {
	m := platform.NewMemory()
	_ = m.WriteFile("/docs/a.md", []byte("# a"), 0o644)
	_ = m.WriteFile("/docs/b.txt", []byte("b"), 0o644)

	fsys := crossfs.New(m, nil, crossfs.Options{})
	paths, _ := fsys.Find(context.Background(), "/docs", func(path string, st crossfs.StatResult) bool {
		return st.IsFile
	}, true)
	for _, p := range paths {
		fmt.Println(filepath.ToSlash(p))
	}
	// Output:
	// /docs/a.md
	// /docs/b.txt
}
