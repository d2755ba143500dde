// Package match builds crossfs.MatchFunc predicates for Find.
package match

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/unicode/norm"

	"github.com/cross-org/fs/pkg/crossfs"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// Glob matches entries against a doublestar pattern. A pattern without a
// path separator is matched against the base name only, otherwise against
// the full slash-separated path. Both sides are NFC normalized so composed
// and decomposed names compare equal.
func Glob(pattern string) (crossfs.MatchFunc, error) {
	pattern = norm.NFC.String(filepath.ToSlash(pattern))
	if !doublestar.ValidatePattern(pattern) {
		return nil, domainerrors.Validationf("invalid glob pattern %q", pattern)
	}
	base := !strings.Contains(pattern, "/")
	return func(path string, _ crossfs.StatResult) bool {
		p := norm.NFC.String(filepath.ToSlash(path))
		if base {
			p = p[strings.LastIndex(p, "/")+1:]
		}
		ok, _ := doublestar.Match(pattern, p)
		return ok
	}, nil
}

// Ext matches entries whose extension is one of exts. Extensions are
// compared case-insensitively with or without the leading dot.
func Ext(exts ...string) crossfs.MatchFunc {
	want := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		want[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return func(path string, _ crossfs.StatResult) bool {
		_, ok := want[strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))]
		return ok
	}
}

// Type matches entries of the given kind: "f" or "file", "d" or
// "directory", "l" or "symlink".
func Type(kind string) (crossfs.MatchFunc, error) {
	switch kind {
	case "f", "file":
		return func(_ string, st crossfs.StatResult) bool { return st.IsFile }, nil
	case "d", "directory", "dir":
		return func(_ string, st crossfs.StatResult) bool { return st.IsDirectory }, nil
	case "l", "symlink":
		return func(_ string, st crossfs.StatResult) bool { return st.IsSymlink }, nil
	default:
		return nil, domainerrors.Validationf("unknown entry type %q", kind)
	}
}

// MinSize matches files of at least n bytes.
func MinSize(n int64) crossfs.MatchFunc {
	return func(_ string, st crossfs.StatResult) bool {
		return st.IsFile && st.Size >= n
	}
}

// MaxSize matches files of at most n bytes.
func MaxSize(n int64) crossfs.MatchFunc {
	return func(_ string, st crossfs.StatResult) bool {
		return st.IsFile && st.Size <= n
	}
}

// ModifiedSince matches entries modified after t. Entries without a
// modification time never match.
func ModifiedSince(t time.Time) crossfs.MatchFunc {
	return func(_ string, st crossfs.StatResult) bool {
		return st.Mtime != nil && st.Mtime.After(t)
	}
}

// Opener reads file content. crossfs.Platform satisfies it.
type Opener interface {
	Open(path string) (io.ReadCloser, error)
}

// MIME matches files whose detected media type is, or descends from, one
// of types (for example "text/plain" or "image/png"). Content is read
// through o; unreadable files do not match.
func MIME(o Opener, types ...string) crossfs.MatchFunc {
	return func(path string, st crossfs.StatResult) bool {
		if !st.IsFile {
			return false
		}
		rc, err := o.Open(path)
		if err != nil {
			return false
		}
		defer rc.Close()

		detected, err := mimetype.DetectReader(rc)
		if err != nil {
			return false
		}
		for m := detected; m != nil; m = m.Parent() {
			for _, t := range types {
				if m.Is(t) {
					return true
				}
			}
		}
		return false
	}
}

// All matches when every predicate matches. No predicates match everything.
func All(fns ...crossfs.MatchFunc) crossfs.MatchFunc {
	return func(path string, st crossfs.StatResult) bool {
		for _, fn := range fns {
			if !fn(path, st) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one predicate matches.
func Any(fns ...crossfs.MatchFunc) crossfs.MatchFunc {
	return func(path string, st crossfs.StatResult) bool {
		for _, fn := range fns {
			if fn(path, st) {
				return true
			}
		}
		return false
	}
}

// Not inverts fn.
func Not(fn crossfs.MatchFunc) crossfs.MatchFunc {
	return func(path string, st crossfs.StatResult) bool {
		return !fn(path, st)
	}
}
