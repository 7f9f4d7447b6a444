package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigPath(t *testing.T) {
	t.Run("environment override wins", func(t *testing.T) {
		t.Setenv("WBCTL_CONFIG", "/tmp/custom/wbctl.yaml")
		require.Equal(t, "/tmp/custom/wbctl.yaml", DefaultConfigPath())
	})

	t.Run("defaults under the user config dir", func(t *testing.T) {
		t.Setenv("WBCTL_CONFIG", "")
		path := DefaultConfigPath()
		require.True(t, filepath.IsAbs(path), "expected absolute path, got %q", path)
		require.True(t, strings.HasSuffix(path, filepath.Join("wbctl", "config.yaml")),
			"expected path ending in wbctl/config.yaml, got %q", path)
	})
}

func TestDefaultCredentialPath(t *testing.T) {
	path := DefaultCredentialPath()
	require.True(t, filepath.IsAbs(path), "expected absolute path, got %q", path)
	require.True(t, strings.HasSuffix(path, filepath.Join("wbctl", "credential")),
		"expected path ending in wbctl/credential, got %q", path)
}

func TestPathConstants(t *testing.T) {
	require.Equal(t, "wbctl", defaultConfigDirName)
	require.Equal(t, "config.yaml", defaultConfigFile)
	require.Equal(t, "credential", defaultCredentialFile)
}
