package watch

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// Options configures a single Watch call.
type Options struct {
	// Recursive also watches every directory below the root, including
	// directories created while watching.
	Recursive bool
	// Ignore lists doublestar patterns. An event is dropped when a pattern
	// matches the base name or the root-relative slash path of its entry.
	Ignore []string
}

// DefaultOptions returns the options used when Watch receives nil.
func DefaultOptions() Options {
	return Options{Recursive: true}
}

func (o *Options) validate() error {
	for _, p := range o.Ignore {
		if !doublestar.ValidatePattern(p) {
			return domainerrors.Validationf("invalid ignore pattern %q", p)
		}
	}
	return nil
}

// shouldIgnore reports whether path, below root, matches an ignore pattern.
func (o *Options) shouldIgnore(root, path string) bool {
	if len(o.Ignore) == 0 || path == "" {
		return false
	}
	base := filepath.Base(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = ""
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range o.Ignore {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
		if rel != "" && rel != "." {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				return true
			}
		}
	}
	return false
}
