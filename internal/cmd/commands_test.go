package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/reliefkit/internal/gridio"
	"github.com/MeKo-Tech/reliefkit/internal/store"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestTerrainAndDeriveCommands(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, execute(t, "terrain",
		"--output-dir", dir,
		"--out", "dem.asc",
		"--width", "32", "--height", "24",
		"--octaves", "3",
		"--seed", "4",
	))

	dem := filepath.Join(dir, "dem.asc")
	g, err := gridio.ReadASCIIFile(dem)
	require.NoError(t, err)
	assert.Equal(t, 32, g.Width)
	assert.Equal(t, 24, g.Height)

	outDir := filepath.Join(dir, "derived")
	require.NoError(t, execute(t, "derive", dem,
		"--output-dir", outDir,
		"--products", "hillshade,slope,mean",
		"--format", "png",
	))
	for _, name := range []string{"dem_hillshade.png", "dem_slope.png", "dem_mean.png"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	err = execute(t, "derive", dem, "--output-dir", outDir, "--products", "ndvi", "--format", "asc")
	assert.Error(t, err)
}

func TestBatchAndExportCommands(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "grids.db")

	require.NoError(t, execute(t, "batch",
		"--output-dir", dir,
		"--store", dbPath,
		"--seeds", "1-3",
		"--width", "16", "--height", "16",
		"--octaves", "2",
		"--products", "elevation,slope",
		"--workers", "2",
		"--progress=false",
	))

	r, err := store.OpenReader(dbPath)
	require.NoError(t, err)
	keys, err := r.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 6)
	meta, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, []string{"elevation", "slope"}, meta.Products)
	require.NoError(t, r.Close())

	exportDir := filepath.Join(dir, "export")
	require.NoError(t, execute(t, "export", dbPath,
		"--output-dir", exportDir,
		"--format", "tif",
		"--products", "slope",
	))

	for _, job := range []string{"seed-0001", "seed-0002", "seed-0003"} {
		_, err := os.Stat(filepath.Join(exportDir, job, "slope.tif"))
		assert.NoError(t, err, job)
		_, err = os.Stat(filepath.Join(exportDir, job, "elevation.tif"))
		assert.True(t, os.IsNotExist(err), "filtered product exported for %s", job)
	}
}

func TestBatchStoreRerun(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "grids.db")
	args := []string{"batch",
		"--store", dbPath,
		"--width", "16", "--height", "16",
		"--octaves", "2",
		"--products", "elevation,hillshade",
		"--workers", "2",
		"--progress=false",
	}

	for _, seeds := range []string{"1-2", "1-4"} {
		require.NoError(t, execute(t, append(args, "--seeds", seeds)...), seeds)

		// The store is closed and checkpointed when the command returns.
		if info, err := os.Stat(dbPath + "-wal"); err == nil {
			assert.Zero(t, info.Size(), "write-ahead log left behind after %s", seeds)
		}
	}

	r, err := store.OpenReader(dbPath)
	require.NoError(t, err)
	defer r.Close()
	keys, err := r.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 8)
}

func TestNDVICommandSynthetic(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, execute(t, "ndvi",
		"--output-dir", dir,
		"--out", "ndvi.asc",
		"--width", "20", "--height", "10",
	))

	g, err := gridio.ReadASCIIFile(filepath.Join(dir, "ndvi.asc"))
	require.NoError(t, err)
	s := g.Stats()
	assert.GreaterOrEqual(t, s.Min, -1.0)
	assert.LessOrEqual(t, s.Max, 1.0)

	assert.Error(t, execute(t, "ndvi", "--output-dir", dir, "--nir", "only-one.asc"))
}
