package crossfs

import (
	"context"
	"path/filepath"
	"strings"
)

// Which searches the directories listed in PATH for an executable named
// command and returns the first match. Lookup failures are not reported.
func (f *FS) Which(ctx context.Context, command string) (string, bool) {
	if command == "" || strings.ContainsRune(command, filepath.Separator) {
		return "", false
	}
	for _, dir := range filepath.SplitList(f.getenv("PATH")) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, command)
		st, err := f.Stat(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return "", false
			}
			continue
		}
		if executable(st) {
			return candidate, true
		}
	}
	return "", false
}

// executable reports whether st is a regular file with an execute bit set.
// Platforms without permission bits accept every regular file.
func executable(st StatResult) bool {
	if !st.IsFile {
		return false
	}
	return st.Mode == nil || *st.Mode&0o111 != 0
}
