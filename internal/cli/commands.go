package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cross-org/fs/pkg/crossfs"
	"github.com/cross-org/fs/pkg/crossfs/match"
	"github.com/cross-org/fs/pkg/crossfs/watch"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

func (a *App) stat(link bool) func(context.Context, []string) error {
	name := "stat"
	statFn := a.fs.Stat
	if link {
		name = "lstat"
		statFn = a.fs.Lstat
	}
	return func(ctx context.Context, args []string) error {
		fs := newFlags(name)
		if err := parse(fs, args); err != nil {
			return err
		}
		paths, err := requireArgs(fs, 1)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		for _, p := range paths {
			st, err := statFn(ctx, p)
			if err != nil {
				return err
			}
			if err := enc.Encode(st); err != nil {
				return err
			}
		}
		return nil
	}
}

func (a *App) predicate(fn func(context.Context, string) (bool, error)) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		if len(args) != 1 {
			return domainerrors.Validation("expected exactly one path argument")
		}
		ok, err := fn(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.out, ok)
		return err
	}
}

func (a *App) find(ctx context.Context, args []string) error {
	fs := newFlags("find")
	name := fs.String("name", "", "glob matched against the base name, or the full path when it contains /")
	ext := fs.String("ext", "", "comma separated extensions")
	typ := fs.String("type", "", "entry type: f, d or l")
	minSize := fs.String("min-size", "", "minimum file size, e.g. 10KiB")
	maxSize := fs.String("max-size", "", "maximum file size, e.g. 2MB")
	mime := fs.String("mime", "", "comma separated media types, e.g. text/plain")
	newer := fs.Duration("newer", 0, "only entries modified within this duration")
	shallow := fs.Bool("shallow", false, "do not descend below the root's children")
	if err := parse(fs, args); err != nil {
		return err
	}

	var filters []crossfs.MatchFunc
	if *name != "" {
		fn, err := match.Glob(*name)
		if err != nil {
			return err
		}
		filters = append(filters, fn)
	}
	if *ext != "" {
		filters = append(filters, match.Ext(splitList(*ext)...))
	}
	if *typ != "" {
		fn, err := match.Type(*typ)
		if err != nil {
			return err
		}
		filters = append(filters, fn)
	}
	if *minSize != "" {
		n, err := parseBytes("min-size", *minSize)
		if err != nil {
			return err
		}
		filters = append(filters, match.MinSize(n))
	}
	if *maxSize != "" {
		n, err := parseBytes("max-size", *maxSize)
		if err != nil {
			return err
		}
		filters = append(filters, match.MaxSize(n))
	}
	if *newer > 0 {
		filters = append(filters, match.ModifiedSince(time.Now().Add(-*newer)))
	}
	// Content sniffing is the most expensive filter, so it runs last.
	if *mime != "" {
		filters = append(filters, match.MIME(a.fs.Platform(), splitList(*mime)...))
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}
	var fn crossfs.MatchFunc
	if len(filters) > 0 {
		fn = match.All(filters...)
	}

	paths, err := a.fs.Find(ctx, root, fn, !*shallow)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := fmt.Fprintln(a.out, p); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) size(disk bool) func(context.Context, []string) error {
	name := "size"
	if disk {
		name = "du"
	}
	return func(ctx context.Context, args []string) error {
		fs := newFlags(name)
		recursive := fs.Bool("r", false, "include every entry below a directory")
		human := fs.Bool("h", false, "print sizes in human readable units")
		if err := parse(fs, args); err != nil {
			return err
		}
		paths, err := requireArgs(fs, 1)
		if err != nil {
			return err
		}

		for _, p := range paths {
			var n int64
			if disk {
				n, err = a.fs.DiskUsage(ctx, p, *recursive)
			} else {
				n, err = a.fs.Size(ctx, p, *recursive)
			}
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(a.out, "%s\t%s\n", formatSize(n, *human), p); err != nil {
				return err
			}
		}
		return nil
	}
}

func (a *App) hash(ctx context.Context, args []string) error {
	fs := newFlags("hash")
	algorithm := fs.String("a", a.hashAlgorithm, "algorithm: "+strings.Join(crossfs.HashAlgorithms(), ", "))
	if err := parse(fs, args); err != nil {
		return err
	}
	paths, err := requireArgs(fs, 1)
	if err != nil {
		return err
	}

	for _, p := range paths {
		digest, err := a.fs.Hash(ctx, p, *algorithm)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(a.out, "%s  %s\n", digest, p); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) which(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return domainerrors.Validation("which: expected at least one command name")
	}
	var missing []string
	for _, name := range args {
		path, ok := a.fs.Which(ctx, name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		if _, err := fmt.Fprintln(a.out, path); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		return domainerrors.NotFoundf("not found on PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (a *App) watch(ctx context.Context, args []string) error {
	fs := newFlags("watch")
	shallow := fs.Bool("shallow", false, "watch only the root directory")
	var ignore []string
	fs.Func("ignore", "glob of entries to skip (repeatable)", func(s string) error {
		ignore = append(ignore, s)
		return nil
	})
	if err := parse(fs, args); err != nil {
		return err
	}

	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	enc := json.NewEncoder(a.out)
	opts := &watch.Options{Recursive: !*shallow, Ignore: ignore}
	for ev, err := range a.watcher.Watch(ctx, root, opts) {
		if err != nil {
			return err
		}
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBytes(flagName, s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, domainerrors.Validationf("invalid -%s %q: %v", flagName, s, err)
	}
	//nolint:gosec // G115: sizes above 8 EiB are not meaningful here
	return int64(n), nil
}

func formatSize(n int64, human bool) string {
	if !human {
		return fmt.Sprint(n)
	}
	//nolint:gosec // G115: sizes are never negative
	return humanize.IBytes(uint64(n))
}
