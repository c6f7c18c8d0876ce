package tokens

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSecret_LoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("first-secret\n"), 0600))

	f, err := NewFileSecret(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first-secret"), f.Secret())

	// mtime-gated reload picks up a rewritten file.
	require.NoError(t, os.WriteFile(path, []byte("second-secret"), 0600))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
	f.reloadIfChanged()
	assert.Equal(t, []byte("second-secret"), f.Secret())
}

func TestFileSecret_Missing(t *testing.T) {
	_, err := NewFileSecret(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestFileSecret_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0600))

	_, err := NewFileSecret(path)
	assert.Error(t, err)
}
