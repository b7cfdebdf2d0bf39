package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathsFromBase(t *testing.T) {
	base := t.TempDir()
	pc := Default().Paths
	pc.BathymetryFile = "/shared/bathy6min.nc"

	p := NewPathsFromBase(base, pc)

	assert.Equal(t, filepath.Join(base, "data"), p.DataDir)
	assert.Equal(t, filepath.Join(base, "data", "archive"), p.ArchiveDir)
	assert.Equal(t, filepath.Join(base, "data", "zarr_table.csv"), p.CatalogFile)
	assert.Equal(t, "/shared/bathy6min.nc", p.BathymetryFile, "absolute entries are kept")
	assert.Equal(t, filepath.Join(p.TransformedDir, "a.nc"), p.GetTransformedPath("a.nc"))
	assert.Equal(t, filepath.Join(p.TransformedDir, ManifestFileName), p.GetManifestPath())
	assert.Equal(t, filepath.Join(p.ArchiveDir, "a.nc"), p.GetArchivePath("a.nc"))
}

func TestResolvePaths(t *testing.T) {
	p, err := ResolvePaths(Default().Paths)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p.DataDir))
	assert.Equal(t, filepath.Join(p.ExecutableDir, DefaultDataDir), p.DataDir)
}

func TestEnsureDirectories(t *testing.T) {
	p := NewPathsFromBase(t.TempDir(), Default().Paths)

	require.NoError(t, p.EnsureDirectories())

	for _, dir := range []string{p.TransformedDir, p.ReportsDir, p.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.False(t, FileExists(p.ArchiveDir), "archive is never created")
}
