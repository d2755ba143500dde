// Package id generates short identifiers used to correlate log lines, such
// as watch session ids.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Size is the length of the random part of an identifier.
const Size = 12

// New returns prefix-<nanoid>, e.g. "watch-V1StGXR8_Z5j".
func New(prefix string) (string, error) {
	s, err := gonanoid.New(Size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	if prefix == "" {
		return s, nil
	}
	return prefix + "-" + s, nil
}
