package crossfs

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	domainerrors "github.com/cross-org/fs/pkg/errors"
)

// DefaultHashAlgorithm is used by Hash when no algorithm is given.
const DefaultHashAlgorithm = "sha256"

var hashers = map[string]func() hash.Hash{
	"md5":         md5.New,
	"sha1":        sha1.New,
	"sha224":      sha256.New224,
	"sha256":      sha256.New,
	"sha384":      sha512.New384,
	"sha512":      sha512.New,
	"sha3-256":    sha3.New256,
	"sha3-512":    sha3.New512,
	"blake2b-256": func() hash.Hash { h, _ := blake2b.New256(nil); return h },
	"blake2b-512": func() hash.Hash { h, _ := blake2b.New512(nil); return h },
	"xxh64":       func() hash.Hash { return xxhash.New() },
}

// HashAlgorithms returns the supported algorithm names in sorted order.
func HashAlgorithms() []string {
	names := make([]string, 0, len(hashers))
	for name := range hashers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Hash returns the lowercase hex digest of the file at path.
// An empty algorithm selects DefaultHashAlgorithm.
func (f *FS) Hash(ctx context.Context, path, algorithm string) (string, error) {
	if algorithm == "" {
		algorithm = DefaultHashAlgorithm
	}
	newHash, ok := hashers[strings.ToLower(algorithm)]
	if !ok {
		return "", domainerrors.Validationf("unsupported hash algorithm %q", algorithm).
			WithPath(path).
			WithDetails(map[string]any{"supported": HashAlgorithms()})
	}

	if err := f.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer f.sem.Release(1)

	rc, err := f.platform.Open(path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := newHash()
	if _, err := io.Copy(h, &contextReader{ctx: ctx, r: rc}); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
