package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/noise"
)

var testRange = [2]float64{-1e6, 1e6}

func TestGenerateDeterministic(t *testing.T) {
	a, err := Generate(100, 75, testRange, testRange, WithSeed(42))
	require.NoError(t, err)
	b, err := Generate(100, 75, testRange, testRange, WithSeed(42))
	require.NoError(t, err)

	assert.True(t, grid.Equal(a, b))
	assert.Equal(t, 100, a.Width)
	assert.Equal(t, 75, a.Height)
}

func TestGenerateCarriesExtent(t *testing.T) {
	g, err := Generate(40, 20, [2]float64{10, 50}, [2]float64{-5, 15})
	require.NoError(t, err)
	require.NotNil(t, g.Extent)

	assert.Equal(t, 10.0, g.Extent.Left())
	assert.Equal(t, 50.0, g.Extent.Right())
	assert.Equal(t, -5.0, g.Extent.Bottom())
	assert.Equal(t, 15.0, g.Extent.Top())
}

func TestGenerateSeaLevelAndRange(t *testing.T) {
	g, err := Generate(120, 90, testRange, testRange, WithSeed(7), WithZFactor(1000))
	require.NoError(t, err)

	s := g.Stats()
	assert.Equal(t, 0.0, s.Min, "lowest cell must be at sea level")
	assert.InDelta(t, 1000.0, s.Max, 1e-9, "highest cell must reach the z factor")

	sea := 0
	for _, v := range g.Data {
		assert.GreaterOrEqual(t, v, 0.0)
		if v == 0 {
			sea++
		}
	}
	assert.Greater(t, sea, 0)
	assert.Less(t, sea, g.Len(), "terrain must contain land")
}

func TestGenerateSeedsDiffer(t *testing.T) {
	a, err := Generate(64, 64, testRange, testRange, WithSeed(1))
	require.NoError(t, err)
	b, err := Generate(64, 64, testRange, testRange, WithSeed(2))
	require.NoError(t, err)

	assert.False(t, grid.Equal(a, b))
}

func TestGenerateOpenSimplex(t *testing.T) {
	a, err := Generate(32, 32, testRange, testRange, WithAlgorithm(noise.OpenSimplex), WithOctaves(6))
	require.NoError(t, err)
	b, err := Generate(32, 32, testRange, testRange, WithAlgorithm(noise.OpenSimplex), WithOctaves(6))
	require.NoError(t, err)
	assert.True(t, grid.Equal(a, b))
}

func TestGenerateRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"zero width", func() error {
			_, err := Generate(0, 10, testRange, testRange)
			return err
		}},
		{"inverted x range", func() error {
			_, err := Generate(10, 10, [2]float64{5, 1}, testRange)
			return err
		}},
		{"empty y range", func() error {
			_, err := Generate(10, 10, testRange, [2]float64{3, 3})
			return err
		}},
		{"no octaves", func() error {
			_, err := Generate(10, 10, testRange, testRange, WithOctaves(0))
			return err
		}},
		{"sea level one", func() error {
			_, err := Generate(10, 10, testRange, testRange, WithSeaLevel(1))
			return err
		}},
		{"negative z factor", func() error {
			_, err := Generate(10, 10, testRange, testRange, WithZFactor(-1))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), grid.ErrInvalidParameter)
		})
	}
}
