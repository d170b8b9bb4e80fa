package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesCompilerAndVMConstants(t *testing.T) {
	cfg := Default()
	require.Equal(t, 256, cfg.MaxTracks)
	require.Equal(t, 256, cfg.MaxGroups)
	require.EqualValues(t, 24, cfg.DefaultStepTicks)
}

func TestLoadMissingFileWarnsAndFallsBackToDefault(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.NotEmpty(t, loaded.Warnings)
	require.Equal(t, Default().MaxTracks, loaded.Config.MaxTracks)
}

func TestLoadEmptyPathStillResolvesEnv(t *testing.T) {
	t.Setenv("BKTK_SAMPLE_PATH", "/srv/samples")
	loaded, err := Load("")
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, "/srv/samples", loaded.Config.SamplePath)
}

func TestLoadParsesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bktk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_tracks: 8
max_groups: 4
default_step_ticks: 12
sample_path: /opt/samples
`), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Empty(t, loaded.Warnings)
	require.Equal(t, 8, loaded.Config.MaxTracks)
	require.Equal(t, 4, loaded.Config.MaxGroups)
	require.EqualValues(t, 12, loaded.Config.DefaultStepTicks)
	require.Equal(t, "/opt/samples", loaded.Config.SamplePath)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bktk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_tracks: [not-a-scalar"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
