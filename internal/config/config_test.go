package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sonic-net/countersyncd/internal/logging"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logging.Logger {
	return logging.Build(io.Discard, "info", "simple")
}

func TestLoadConstantsMissingFileUsesDefaults(t *testing.T) {
	constants, err := LoadConstants(filepath.Join(t.TempDir(), "does-not-exist.yaml"), discardLogger())
	require.NoError(t, err)
	require.Equal(t, defaultGenlFamily, constants.GenlFamily)
	require.Equal(t, defaultGenlMulticastGroup, constants.GenlMulticastGroup)
}

func TestLoadConstantsEmptyPathUsesDefaults(t *testing.T) {
	constants, err := LoadConstants("", discardLogger())
	require.NoError(t, err)
	require.Equal(t, defaultGenlFamily, constants.GenlFamily)
}

func TestLoadConstantsReadsKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constants.yaml")
	body := "constants:\n  high_frequency_telemetry:\n    genl_family: custom_family\n    genl_multicast_group: custom_group\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	constants, err := LoadConstants(path, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "custom_family", constants.GenlFamily)
	require.Equal(t, "custom_group", constants.GenlMulticastGroup)
}

func TestLoadConstantsMissingKeysUseDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constants.yaml")
	require.NoError(t, os.WriteFile(path, []byte("constants: {}\n"), 0o644))

	constants, err := LoadConstants(path, discardLogger())
	require.NoError(t, err)
	require.Equal(t, defaultGenlFamily, constants.GenlFamily)
	require.Equal(t, defaultGenlMulticastGroup, constants.GenlMulticastGroup)
}

func TestLoadConstantsMalformedYAMLIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constants.yaml")
	require.NoError(t, os.WriteFile(path, []byte("constants: [this is not a map"), 0o644))

	_, err := LoadConstants(path, discardLogger())
	require.Error(t, err)
}
