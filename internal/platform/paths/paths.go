package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const DefaultStorageRoot = "/var/lib/nearhome/streams"

// ResolveStorageRoot returns the path to the stream asset directory. The
// STREAM_STORAGE_DIR env var wins over the configured value, matching the
// env-over-file layering of the rest of the configuration.
func ResolveStorageRoot(configured string) string {
	if root := os.Getenv("STREAM_STORAGE_DIR"); root != "" {
		return root
	}
	if configured != "" {
		return configured
	}
	return DefaultStorageRoot
}

// EnsureDir creates the directory (and parents) if it does not exist.
// The process does not assume exclusive ownership of the tree.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// SafeJoin joins path elements and ensures the result is within the base directory (no traversal).
func SafeJoin(base string, elements ...string) (string, error) {
	for _, el := range elements {
		if filepath.IsAbs(el) || strings.Contains(el, "..") {
			return "", fmt.Errorf("path traversal attempt detected: %s", el)
		}
	}
	joined := filepath.Join(append([]string{base}, elements...)...)

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", err
	}

	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(absJoined, absBase) {
		return "", fmt.Errorf("path traversal attempt detected: %s is outside %s", absJoined, absBase)
	}

	return absJoined, nil
}
