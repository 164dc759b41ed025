package gradient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/terrain"
)

func plane(t *testing.T, w, h int, fn func(r, c int) float64) *grid.Grid {
	t.Helper()
	g, err := grid.New(w, h)
	require.NoError(t, err)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			g.Set(r, c, fn(r, c))
		}
	}
	return g
}

func TestSlopeOfPlaneIsUniformIncludingBorders(t *testing.T) {
	g := plane(t, 6, 5, func(r, c int) float64 { return 2 * float64(c) })

	slope, err := Slope(g)
	require.NoError(t, err)
	want := math.Atan(2) * 180 / math.Pi
	for i, v := range slope.Data {
		assert.InDelta(t, want, v, 1e-9, "cell %d", i)
	}
}

func TestAspectCompassConvention(t *testing.T) {
	tests := []struct {
		name string
		fn   func(r, c int) float64
		want float64
	}{
		// Rising to the east: steepest descent points west.
		{"east rising", func(r, c int) float64 { return float64(c) }, 270},
		// Rising to the west: descent points east.
		{"west rising", func(r, c int) float64 { return -float64(c) }, 90},
		// Row 0 is north; rising northwards means descent to the south.
		{"north rising", func(r, c int) float64 { return -float64(r) }, 180},
		{"south rising", func(r, c int) float64 { return float64(r) }, 0},
		{"north-east rising", func(r, c int) float64 { return float64(c) - float64(r) }, 225},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aspect, err := Aspect(plane(t, 5, 5, tt.fn))
			require.NoError(t, err)
			for i, v := range aspect.Data {
				assert.InDelta(t, tt.want, v, 1e-9, "cell %d", i)
			}
		})
	}
}

func TestFlatFieldAspectSentinel(t *testing.T) {
	g, err := grid.Filled(8, 6, 123.5)
	require.NoError(t, err)

	aspect, err := Aspect(g)
	require.NoError(t, err)
	slope, err := Slope(g)
	require.NoError(t, err)

	for i := range aspect.Data {
		assert.Equal(t, FlatAspect, aspect.Data[i])
		assert.Equal(t, 0.0, slope.Data[i])
	}
}

func TestCellSizeScalesSlope(t *testing.T) {
	g := plane(t, 4, 4, func(r, c int) float64 { return 10 * float64(c) })
	unit, err := Compute(g)
	require.NoError(t, err)

	// 4 columns across 80 units: 20 units per cell.
	g.WithExtent(0, 80, 0, 4)
	scaled, err := Compute(g)
	require.NoError(t, err)

	for i := range unit.DzDx.Data {
		assert.InDelta(t, 10.0, unit.DzDx.Data[i], 1e-12)
		assert.InDelta(t, 0.5, scaled.DzDx.Data[i], 1e-12)
	}
}

func TestTranslationInvariance(t *testing.T) {
	elev, err := terrain.Generate(100, 75, [2]float64{-1e6, 1e6}, [2]float64{-1e6, 1e6}, terrain.WithSeed(42))
	require.NoError(t, err)

	shifted := elev.Clone()
	for i := range shifted.Data {
		shifted.Data[i] += 250
	}

	s1, err := Slope(elev)
	require.NoError(t, err)
	s2, err := Slope(shifted)
	require.NoError(t, err)
	a1, err := Aspect(elev)
	require.NoError(t, err)
	a2, err := Aspect(shifted)
	require.NoError(t, err)

	for i := range s1.Data {
		assert.InDelta(t, s1.Data[i], s2.Data[i], 1e-6)
		if a1.Data[i] == FlatAspect {
			assert.Equal(t, FlatAspect, a2.Data[i])
			continue
		}
		assert.InDelta(t, a1.Data[i], a2.Data[i], 1e-6)
	}
}

func TestIntegerTranslationIsExact(t *testing.T) {
	g := plane(t, 5, 5, func(r, c int) float64 { return float64(r*r + 3*c) })
	shifted := plane(t, 5, 5, func(r, c int) float64 { return float64(r*r+3*c) + 1000 })

	s1, err := Slope(g)
	require.NoError(t, err)
	s2, err := Slope(shifted)
	require.NoError(t, err)
	assert.True(t, grid.Equal(s1, s2))
}

func TestSlopeOfTerrainBelowNinety(t *testing.T) {
	elev, err := terrain.Generate(100, 75, [2]float64{-1e6, 1e6}, [2]float64{-1e6, 1e6}, terrain.WithSeed(42))
	require.NoError(t, err)

	slope, err := Slope(elev)
	require.NoError(t, err)
	assert.Equal(t, elev.Width, slope.Width)
	assert.Equal(t, elev.Height, slope.Height)
	for _, v := range slope.Data {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 90.0)
	}
}

func TestNoDataPropagatesToNeighbourhood(t *testing.T) {
	g := plane(t, 5, 5, func(r, c int) float64 { return float64(c) })
	g.Set(2, 2, grid.NoData)

	slope, err := Slope(g)
	require.NoError(t, err)

	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			near := r >= 1 && r <= 3 && c >= 1 && c <= 3
			if near {
				assert.True(t, grid.IsNoData(slope.At(r, c)), "(%d,%d) should be NoData", r, c)
			} else {
				assert.False(t, grid.IsNoData(slope.At(r, c)), "(%d,%d) should be defined", r, c)
			}
		}
	}
}

func TestSingleRowGrid(t *testing.T) {
	g := plane(t, 4, 1, func(r, c int) float64 { return float64(c) })

	p, err := Compute(g)
	require.NoError(t, err)
	for i := range p.DzDy.Data {
		assert.Equal(t, 0.0, p.DzDy.Data[i])
		assert.InDelta(t, 1.0, p.DzDx.Data[i], 1e-12)
	}
}
