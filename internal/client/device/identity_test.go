package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_GeneratesAndPersistsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids", "device.json")

	first, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, first.DeviceID)
	require.NotEmpty(t, first.Fingerprint)
	require.Len(t, first.Fingerprint, 64) // sha256 hex

	// Segunda carga: mismo par, sin regenerar.
	second, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsIncompleteIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"device_id":"x"}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_EmptyPathFailsFast(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}
