// Package crossfs provides one filesystem API over divergent native
// platforms: normalized stat results, existence and type predicates,
// recursive find, size and disk usage aggregation, hashing and command
// lookup.
//
// The platform is chosen once by the caller and injected:
//
//	fsys := crossfs.New(platform.Native(), logger, crossfs.Options{})
//	ok, err := fsys.IsDir(ctx, "/tmp")
package crossfs

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/sync/semaphore"

	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// DefaultConcurrency bounds the platform calls in flight for one FS.
const DefaultConcurrency = 64

// DefaultFanout bounds the children of one directory processed at once.
const DefaultFanout = 32

// Options configures an FS.
type Options struct {
	// Concurrency is the maximum number of platform calls in flight.
	Concurrency int
	// Fanout is the maximum number of children of a single directory
	// processed at once by Find, Size and DiskUsage. Goroutines grow with
	// Fanout per level of the tree being walked.
	Fanout int
	// Getenv looks up environment variables. Defaults to os.Getenv.
	Getenv func(string) string
}

func (o *Options) setDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Fanout <= 0 {
		o.Fanout = DefaultFanout
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
}

// FS runs filesystem operations against a single Platform.
// It holds no per-call state and is safe for concurrent use.
type FS struct {
	platform Platform
	logger   *slog.Logger
	sem      *semaphore.Weighted
	fanout   int
	getenv   func(string) string
}

// New creates an FS on top of p. A nil logger discards output.
func New(p Platform, logger *slog.Logger, opts Options) *FS {
	opts.setDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FS{
		platform: p,
		logger:   logger.With("platform", p.Descriptor().Name),
		sem:      semaphore.NewWeighted(int64(opts.Concurrency)),
		fanout:   opts.Fanout,
		getenv:   opts.Getenv,
	}
}

// Platform returns the platform the FS was created with.
func (f *FS) Platform() Platform {
	return f.platform
}

// Stat returns the status of the entry at path, following symlinks.
// It fails with errors.ErrNotFound when nothing exists at path.
func (f *FS) Stat(ctx context.Context, path string) (StatResult, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return StatResult{}, err
	}
	defer f.sem.Release(1)
	return f.platform.Stat(path)
}

// Lstat is like Stat but reports a symlink itself.
func (f *FS) Lstat(ctx context.Context, path string) (StatResult, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return StatResult{}, err
	}
	defer f.sem.Release(1)
	return f.platform.Lstat(path)
}

// Exists reports whether anything exists at path.
func (f *FS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := f.Stat(ctx, path)
	return present(err, true)
}

// IsDir reports whether path is a directory.
func (f *FS) IsDir(ctx context.Context, path string) (bool, error) {
	st, err := f.Stat(ctx, path)
	return present(err, st.IsDirectory)
}

// IsFile reports whether path is a regular file.
func (f *FS) IsFile(ctx context.Context, path string) (bool, error) {
	st, err := f.Stat(ctx, path)
	return present(err, st.IsFile)
}

// IsSymlink reports whether path is itself a symbolic link.
func (f *FS) IsSymlink(ctx context.Context, path string) (bool, error) {
	st, err := f.Lstat(ctx, path)
	return present(err, st.IsSymlink)
}

// present collapses NotFound into false and passes every other error on.
func present(err error, v bool) (bool, error) {
	switch {
	case err == nil:
		return v, nil
	case domainerrors.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (f *FS) readDir(ctx context.Context, path string) ([]string, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)
	entries, err := f.platform.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}
