package crossfs

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// MatchFunc decides whether an entry belongs in the output of Find.
// It is called concurrently and must not block.
type MatchFunc func(path string, st StatResult) bool

// Find returns the absolute paths of every entry under root accepted by
// match, in directory listing order. A nil match accepts everything.
//
// A directory is evaluated before its children. When recursive is false
// only root and its immediate children are evaluated.
//
// Errors resolving, statting or listing root are returned. Errors below
// root drop the affected entry and its subtree from the output.
func (f *FS) Find(ctx context.Context, root string, match MatchFunc, recursive bool) ([]string, error) {
	abs, err := f.platform.Abs(root)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat(ctx, abs)
	if err != nil {
		return nil, err
	}
	if match == nil {
		match = func(string, StatResult) bool { return true }
	}
	return f.find(ctx, abs, st, match, true, recursive, nil)
}

func (f *FS) find(ctx context.Context, path string, st StatResult, match MatchFunc, expand, recursive bool, above *lineage) ([]string, error) {
	switch {
	case st.IsFile || st.IsSymlink:
		if match(path, st) {
			return []string{path}, nil
		}
		return nil, nil
	case !st.IsDirectory:
		return nil, nil
	}

	var out []string
	if match(path, st) {
		out = append(out, path)
	}
	if !expand {
		return out, nil
	}
	if above.contains(st) {
		f.logger.Debug("find: directory cycle, not descending", "path", path)
		return out, nil
	}

	names, err := f.readDir(ctx, path)
	if err != nil {
		return nil, err
	}

	chain := above.push(st)
	results := make([][]string, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.fanout)
	for i, name := range names {
		child := filepath.Join(path, name)
		g.Go(func() error {
			cst, err := f.Stat(gctx, child)
			if err == nil {
				results[i], err = f.find(gctx, child, cst, match, recursive, recursive, chain)
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				f.logger.Debug("find: skipping entry", "path", child, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
