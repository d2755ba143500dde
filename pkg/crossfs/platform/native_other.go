//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package platform

import "github.com/cross-org/fs/pkg/crossfs"

func newUnix() crossfs.Platform {
	return nil
}

// Native returns the portable platform.
func Native() crossfs.Platform {
	return NewPortable()
}
