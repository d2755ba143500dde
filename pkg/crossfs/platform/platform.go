// Package platform provides the native filesystems a crossfs.FS runs on.
//
// Each platform converts its own status structure into a
// crossfs.StatResult with a single mapping function and decides which of
// its errors mean "not found".
package platform

import (
	"io/fs"
	"slices"
	"strings"

	"github.com/cross-org/fs/pkg/crossfs"
	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// Platform names accepted by ByName.
const (
	NameNative   = "native"
	NameUnix     = "unix"
	NamePortable = "portable"
	NameMemory   = "memory"
)

// Names returns every name accepted by ByName.
func Names() []string {
	return []string{NameNative, NameUnix, NamePortable, NameMemory}
}

// ByName returns the platform called name. "native" resolves to the best
// platform for the running operating system.
func ByName(name string) (crossfs.Platform, error) {
	switch strings.ToLower(name) {
	case NameNative, "":
		return Native(), nil
	case NameUnix:
		if p := newUnix(); p != nil {
			return p, nil
		}
		return nil, domainerrors.Unsupportedf("platform %q is not available on this system", name)
	case NamePortable:
		return NewPortable(), nil
	case NameMemory:
		return NewMemory(), nil
	default:
		return nil, domainerrors.Validationf("unknown platform %q", name).
			WithDetails(map[string]any{"supported": Names()})
	}
}

// Valid reports whether name is accepted by ByName.
func Valid(name string) bool {
	return slices.Contains(Names(), strings.ToLower(name))
}

// File type bits of a POSIX st_mode.
const (
	modeTypeMask = 0o170000
	modeSocket   = 0o140000
	modeSymlink  = 0o120000
	modeRegular  = 0o100000
	modeBlock    = 0o060000
	modeDir      = 0o040000
	modeChar     = 0o020000
	modeFifo     = 0o010000
)

// posixMode converts a Go file mode into POSIX st_mode bits.
func posixMode(m fs.FileMode) uint32 {
	mode := uint32(m.Perm())
	if m&fs.ModeSetuid != 0 {
		mode |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		mode |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		mode |= 0o1000
	}

	switch {
	case m.IsDir():
		mode |= modeDir
	case m&fs.ModeSymlink != 0:
		mode |= modeSymlink
	case m&fs.ModeNamedPipe != 0:
		mode |= modeFifo
	case m&fs.ModeSocket != 0:
		mode |= modeSocket
	case m&fs.ModeCharDevice != 0:
		mode |= modeChar
	case m&fs.ModeDevice != 0:
		mode |= modeBlock
	case m.IsRegular():
		mode |= modeRegular
	}
	return mode
}

func ptr[T any](v T) *T {
	return &v
}
