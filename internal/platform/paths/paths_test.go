package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStorageRoot(t *testing.T) {
	os.Unsetenv("STREAM_STORAGE_DIR")
	assert.Equal(t, DefaultStorageRoot, ResolveStorageRoot(""))
	assert.Equal(t, "/srv/streams", ResolveStorageRoot("/srv/streams"))

	// Env beats the configured value, same as every other setting.
	t.Setenv("STREAM_STORAGE_DIR", "/data/streams")
	assert.Equal(t, "/data/streams", ResolveStorageRoot(""))
	assert.Equal(t, "/data/streams", ResolveStorageRoot("/srv/streams"))
}

func TestSafeJoin(t *testing.T) {
	base := t.TempDir()

	cases := []struct {
		name     string
		elements []string
		valid    bool
	}{
		{"normal", []string{"tenant-a", "camera-a", "index.m3u8"}, true},
		{"parent", []string{"..", "other"}, false},
		{"nested_parent", []string{"tenant-a", "..", "..", "secrets"}, false},
		{"absolute", []string{"/etc/passwd"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := SafeJoin(base, tc.elements...)
			if tc.valid {
				assert.NoError(t, err)
				assert.Contains(t, res, base)
			} else {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), "traversal")
				}
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b", "c")

	assert.NoError(t, EnsureDir(root))
	_, err := os.Stat(root)
	assert.NoError(t, err)

	// Idempotent on existing directories.
	assert.NoError(t, EnsureDir(root))
}
