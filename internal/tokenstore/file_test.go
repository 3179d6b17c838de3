package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_BlankFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, ok, err := NewFileBackend(path).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultFilePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")

	path, err := DefaultFilePath("token")
	require.NoError(t, err)
	assert.Equal(t, "token", filepath.Base(path))
	assert.Equal(t, "cms-admin", filepath.Base(filepath.Dir(path)))
}
