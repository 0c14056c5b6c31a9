package jsruntime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
[plugin]
name = "weather"
version = "1.0.0"

[runtime]
entry = "index.ts"
`

func TestDiscoverManifestsCachesResults(t *testing.T) {
	t.Setenv("ZEROCLAW_PLUGIN_MANIFEST_CACHE_MS", "60000")
	t.Setenv("ZEROCLAW_DISABLE_PLUGIN_MANIFEST_CACHE", "")

	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "weather")
	require.NoError(t, os.MkdirAll(manifestPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(manifestPath, "plugin.toml"), []byte(sampleManifest), 0o644))

	initial, err := DiscoverManifests([]string{dir})
	require.NoError(t, err)
	assert.Contains(t, initial, "weather")

	require.NoError(t, os.RemoveAll(manifestPath))

	cached, err := DiscoverManifests([]string{dir})
	require.NoError(t, err)
	assert.Contains(t, cached, "weather")
}

func TestValidatePluginPathAllowsDotDotSubstring(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foo..bar")

	abs, err := ValidatePluginPath(path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
}

func TestValidatePluginPathRejectsTraversal(t *testing.T) {
	_, err := ValidatePluginPath("../../etc/passwd")
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestLoadManifestForPath(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "plugin.toml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(sampleManifest), 0o644))

	info, err := LoadManifestForPath(dir)
	require.NoError(t, err)
	assert.Equal(t, "weather", info.Manifest.Plugin.Name)
}

func TestDiscoverManifestsRejectsDuplicateNames(t *testing.T) {
	t.Setenv("ZEROCLAW_DISABLE_PLUGIN_MANIFEST_CACHE", "1")

	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		p := filepath.Join(dir, sub)
		require.NoError(t, os.MkdirAll(p, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(p, "plugin.toml"), []byte(sampleManifest), 0o644))
	}

	_, err := DiscoverManifests([]string{dir})
	assert.Error(t, err)
}
