package gridio

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
)

func TestImageScalesToFullRange(t *testing.T) {
	g, _ := grid.FromRows([][]float64{{10, 20}, {30, math.NaN()}})

	img, err := Image(g)
	require.NoError(t, err)

	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(math.MaxUint16), img.Gray16At(0, 1).Y)
	assert.Equal(t, uint16(32768), img.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(0), img.Gray16At(1, 1).Y, "NoData renders black")
}

func TestImageFixedRangeClamps(t *testing.T) {
	g, _ := grid.FromRows([][]float64{{-5, 0.5, 5}})

	img, err := Image(g, WithRange(0, 1))
	require.NoError(t, err)
	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(32768), img.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(math.MaxUint16), img.Gray16At(2, 0).Y)

	_, err = Image(g, WithRange(1, 0))
	assert.ErrorIs(t, err, grid.ErrInvalidParameter)
}

func TestImageConstantGridIsBlack(t *testing.T) {
	g, _ := grid.Filled(3, 3, 7)
	img, err := Image(g)
	require.NoError(t, err)
	for _, px := range img.Pix {
		assert.Equal(t, uint8(0), px)
	}
}

func TestImagePreviewSize(t *testing.T) {
	g, _ := grid.Filled(40, 20, 1)

	img, err := Image(g, WithSize(10, 0))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())
}

func TestEncodersProduceDecodableImages(t *testing.T) {
	g, _ := grid.FromRows([][]float64{{0, 1, 2}, {3, 4, 5}})

	var pngBuf bytes.Buffer
	require.NoError(t, EncodePNG(&pngBuf, g))
	decoded, err := png.Decode(&pngBuf)
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Bounds().Dx())

	var tifBuf bytes.Buffer
	require.NoError(t, EncodeTIFF(&tifBuf, g))
	decoded, err = tiff.Decode(&tifBuf)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.Bounds().Dy())
}

func TestWriteFileByExtension(t *testing.T) {
	dir := t.TempDir()
	g, _ := grid.FromRows([][]float64{{0, 1}, {2, 3}})

	for _, name := range []string{"out.asc", "out.png", "out.tif"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, g), name)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	assert.ErrorIs(t, WriteFile(filepath.Join(dir, "out.jpg"), g), grid.ErrInvalidParameter)
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.asc":    FormatASCII,
		"a.ASC.gz": FormatASCII,
		"a.png":    FormatPNG,
		"a.tiff":   FormatTIFF,
	}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}
