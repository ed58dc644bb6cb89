package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path (and parents) when it does not exist yet.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// SafeJoin joins name under root, stripping any path components from name so
// an artifact id can never escape the output root.
func SafeJoin(root, name string) string {
	return filepath.Join(root, filepath.Base(name))
}
