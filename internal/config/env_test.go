package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnvSetsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "APCA_API_KEY_ID=abc123\nAPCA_API_SECRET_KEY=shh\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	unsetEnv(t, "APCA_API_KEY_ID")
	unsetEnv(t, "APCA_API_SECRET_KEY")

	require.NoError(t, loadDotEnv(path))

	assert.Equal(t, "abc123", os.Getenv("APCA_API_KEY_ID"))
	assert.Equal(t, "shh", os.Getenv("APCA_API_SECRET_KEY"))
}

func TestLoadDotEnvDoesNotOverrideExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "APCA_API_KEY_ID=from_file\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("APCA_API_KEY_ID", "from_env")

	require.NoError(t, loadDotEnv(path))

	assert.Equal(t, "from_env", os.Getenv("APCA_API_KEY_ID"))
}

func TestLoadDotEnvIfPresentIgnoresMissingFile(t *testing.T) {
	assert.NotPanics(t, func() {
		loadDotEnvIfPresent(filepath.Join(t.TempDir(), "no-such.env"))
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	// t.Setenv registers cleanup restoring the original value.
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
