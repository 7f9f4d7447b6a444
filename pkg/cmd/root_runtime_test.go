package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbench-cloud/workbench-cli/pkg/config"
)

func TestRuntimeStateOutputFormat(t *testing.T) {
	rt := &runtimeState{outputFormat: "json"}
	require.Equal(t, "json", rt.OutputFormat())

	rt = &runtimeState{cfg: &config.Config{Settings: config.Settings{OutputFormat: "yaml"}}}
	require.Equal(t, "yaml", rt.OutputFormat())

	rt = &runtimeState{}
	require.Equal(t, "text", rt.OutputFormat())
}

func TestRuntimeStateTokenStorage(t *testing.T) {
	rt := &runtimeState{tokenStorageOverride: config.StorageKeyring}
	require.Equal(t, config.StorageKeyring, rt.TokenStorage())

	rt = &runtimeState{cfg: &config.Config{Settings: config.Settings{TokenStorage: config.StorageKeyring}}}
	require.Equal(t, config.StorageKeyring, rt.TokenStorage())

	rt = &runtimeState{}
	require.Equal(t, config.StorageFile, rt.TokenStorage())
}

func TestRuntimeStateResolveServer(t *testing.T) {
	rt := &runtimeState{serverOverride: "https://override.example.com"}
	require.Equal(t, "https://override.example.com", rt.resolveServer())

	rt = &runtimeState{cfg: &config.Config{Server: "https://configured.example.com"}}
	require.Equal(t, "https://configured.example.com", rt.resolveServer())

	rt = &runtimeState{}
	require.Equal(t, config.DefaultServer, rt.resolveServer())
}

func TestRuntimeStateWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	rt := &runtimeState{writer: buf}
	require.Equal(t, buf, rt.Writer())

	rt = &runtimeState{}
	require.Equal(t, os.Stdout, rt.Writer())
}

func TestEnsureConfigLoaded(t *testing.T) {
	path := configPathForTest(t)
	cfg := config.DefaultConfig()
	cfg.Server = "https://wb.example.com"
	require.NoError(t, config.Save(path, &cfg))

	rt := &runtimeState{configPath: path}
	require.NoError(t, rt.EnsureConfigLoaded())
	require.NotNil(t, rt.cfg)
	require.Equal(t, "https://wb.example.com", rt.cfg.Server)
}

func TestEnsureConfigLoaded_MissingFileUsesDefaults(t *testing.T) {
	rt := &runtimeState{configPath: configPathForTest(t)}
	require.NoError(t, rt.EnsureConfigLoaded())
	require.NotNil(t, rt.cfg)
	require.Equal(t, config.DefaultServer, rt.cfg.Server)
}

func TestConfigPathValue(t *testing.T) {
	rt := &runtimeState{configPath: "/tmp/custom.yaml"}
	require.Equal(t, "/tmp/custom.yaml", rt.configPathValue())

	rt = &runtimeState{}
	require.Equal(t, config.DefaultConfigPath(), rt.configPathValue())
}
