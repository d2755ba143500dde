package crossfs

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// measure extracts the contribution of a single entry to an aggregate.
type measure func(StatResult) int64

func byteSize(st StatResult) int64 { return st.Size }

func diskUsage(st StatResult) int64 { return st.DiskUsage() }

// Size returns the size in bytes of path. For a directory it is the size of
// the directory entry plus its immediate children, or, when recursive is
// true, plus the size of every entry below it.
//
// Children that cannot be read count as zero. Errors on path itself are
// returned.
func (f *FS) Size(ctx context.Context, path string, recursive bool) (int64, error) {
	return f.aggregate(ctx, path, byteSize, recursive)
}

// DiskUsage is like Size but counts each entry as the larger of its block
// size and its byte size.
func (f *FS) DiskUsage(ctx context.Context, path string, recursive bool) (int64, error) {
	return f.aggregate(ctx, path, diskUsage, recursive)
}

func (f *FS) aggregate(ctx context.Context, path string, m measure, recursive bool) (int64, error) {
	st, err := f.Stat(ctx, path)
	if err != nil {
		return 0, err
	}
	return f.sum(ctx, path, st, m, recursive, nil)
}

func (f *FS) sum(ctx context.Context, path string, st StatResult, m measure, recursive bool, above *lineage) (int64, error) {
	total := m(st)
	if !st.IsDirectory {
		return total, nil
	}
	if above.contains(st) {
		f.logger.Debug("size: directory cycle, counting as leaf", "path", path)
		return total, nil
	}

	names, err := f.readDir(ctx, path)
	if err != nil {
		return 0, err
	}

	chain := above.push(st)
	sizes := make([]int64, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.fanout)
	for i, name := range names {
		child := filepath.Join(path, name)
		g.Go(func() error {
			cst, err := f.Stat(gctx, child)
			if err == nil {
				if recursive {
					sizes[i], err = f.sum(gctx, child, cst, m, true, chain)
				} else {
					sizes[i] = m(cst)
				}
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				sizes[i] = 0
				f.logger.Debug("size: counting unreadable entry as zero", "path", child, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for _, s := range sizes {
		total += s
	}
	return total, nil
}
