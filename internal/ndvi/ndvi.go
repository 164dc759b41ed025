// Package ndvi computes the normalized difference vegetation index.
package ndvi

import (
	"math"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/noise"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

// ZeroDenominator is assigned where nir + red == 0.
const ZeroDenominator = 0.0

// Index returns (nir - red) / (nir + red) for one cell, clamped to [-1, 1].
// Infinite bands that leave the ratio undefined resolve to the sign of
// nir - red, or ZeroDenominator when that is undefined too.
func Index(nir, red float64) float64 {
	if grid.IsNoData(nir) || grid.IsNoData(red) {
		return grid.NoData
	}
	den := nir + red
	if den == 0 {
		return ZeroDenominator
	}
	v := (nir - red) / den
	if math.IsNaN(v) {
		switch d := nir - red; {
		case d > 0:
			return 1
		case d < 0:
			return -1
		default:
			return ZeroDenominator
		}
	}
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// NDVI computes the index cell by cell. Both bands must have identical shape.
// The result carries the extent of nir.
func NDVI(nir, red *grid.Grid) (*grid.Grid, error) {
	if err := nir.Validate(); err != nil {
		return nil, err
	}
	if err := red.Validate(); err != nil {
		return nil, err
	}
	if err := grid.CheckSameShape(nir, red); err != nil {
		return nil, err
	}

	out := nir.Like()
	worker.Rows(out.Width, out.Height, func(b worker.Band) {
		for i := b.Start * out.Width; i < b.End*out.Width; i++ {
			out.Data[i] = Index(nir.Data[i], red.Data[i])
		}
	})
	return out, nil
}

// SyntheticBand samples a non-negative reflectance-like band in [0, 1] from noise,
// for demos and tests that need two independent bands.
func SyntheticBand(seed int64, freq noise.Frequency, width, height int) (*grid.Grid, error) {
	g, err := noise.Sample(seed, freq, width, height)
	if err != nil {
		return nil, err
	}
	return grid.Normalize(g), nil
}
