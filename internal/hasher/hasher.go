// Package hasher computes content digests of model files.
package hasher

import (
	"fmt"
	"os"

	"github.com/opencontainers/go-digest"
)

// File returns the lowercase hex SHA-256 of the file at path. The file is
// streamed, never loaded whole, so multi-gigabyte weights are fine.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()
	d, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return d.Encoded(), nil
}
