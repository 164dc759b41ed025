// Package gradient derives slope and aspect surfaces from elevation grids.
//
// Partial derivatives use Horn's 3x3 weighted finite differences. At the grid
// border neighbour indices are clamped and each difference is divided by the
// index distance it actually spans, so edge cells fall back to one-sided
// differences instead of being dropped. A planar surface yields the same
// slope and aspect at every cell.
package gradient

import (
	"math"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

// FlatAspect is the aspect assigned to cells with zero gradient.
const FlatAspect = -1.0

const radToDeg = 180 / math.Pi

// Partials holds dz/dx (eastward) and dz/dy (southward, i.e. increasing row) per cell.
type Partials struct {
	DzDx *grid.Grid
	DzDy *grid.Grid
}

// Compute returns the Horn partial derivatives of elevation.
// Cells with NoData anywhere in their neighbourhood get NoData partials.
func Compute(elevation *grid.Grid) (*Partials, error) {
	if err := elevation.Validate(); err != nil {
		return nil, err
	}

	w, h := elevation.Width, elevation.Height
	cellW, cellH := elevation.CellSize()
	dzdx := elevation.Like()
	dzdy := elevation.Like()

	worker.Rows(w, h, func(b worker.Band) {
		for r := b.Start; r < b.End; r++ {
			rn, rs := clamp(r-1, h), clamp(r+1, h)
			for c := 0; c < w; c++ {
				cw, ce := clamp(c-1, w), clamp(c+1, w)

				x := 0.0
				if ce != cw {
					span := float64(ce-cw) * cellW
					x = (diffX(elevation, rn, cw, ce) +
						2*diffX(elevation, r, cw, ce) +
						diffX(elevation, rs, cw, ce)) / (4 * span)
				}

				y := 0.0
				if rs != rn {
					span := float64(rs-rn) * cellH
					y = (diffY(elevation, cw, rn, rs) +
						2*diffY(elevation, c, rn, rs) +
						diffY(elevation, ce, rn, rs)) / (4 * span)
				}

				if math.IsNaN(x) || math.IsNaN(y) || grid.IsNoData(elevation.At(r, c)) {
					x, y = grid.NoData, grid.NoData
				}
				dzdx.Set(r, c, x)
				dzdy.Set(r, c, y)
			}
		}
	})

	return &Partials{DzDx: dzdx, DzDy: dzdy}, nil
}

func diffX(g *grid.Grid, r, cw, ce int) float64 { return g.At(r, ce) - g.At(r, cw) }

func diffY(g *grid.Grid, c, rn, rs int) float64 { return g.At(rs, c) - g.At(rn, c) }

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// SlopeDegrees converts partial derivatives to slope in degrees.
func SlopeDegrees(dzdx, dzdy float64) float64 {
	return math.Atan(math.Sqrt(dzdx*dzdx+dzdy*dzdy)) * radToDeg
}

// AspectDegrees converts partial derivatives to a compass aspect in [0, 360),
// 0 = north, clockwise. Flat cells return FlatAspect.
func AspectDegrees(dzdx, dzdy float64) float64 {
	if dzdx == 0 && dzdy == 0 {
		return FlatAspect
	}
	a := math.Atan2(dzdy, -dzdx) * radToDeg
	var cell float64
	switch {
	case a < 0:
		cell = 90 - a
	case a > 90:
		cell = 360 - a + 90
	default:
		cell = 90 - a
	}
	if cell >= 360 {
		cell -= 360
	}
	return cell
}

// Slope returns the per-cell slope of elevation in degrees from horizontal.
func Slope(elevation *grid.Grid) (*grid.Grid, error) {
	p, err := Compute(elevation)
	if err != nil {
		return nil, err
	}
	return mapPartials(p, SlopeDegrees), nil
}

// Aspect returns the per-cell compass direction of steepest descent in degrees.
// Flat cells are set to FlatAspect.
func Aspect(elevation *grid.Grid) (*grid.Grid, error) {
	p, err := Compute(elevation)
	if err != nil {
		return nil, err
	}
	return mapPartials(p, AspectDegrees), nil
}

func mapPartials(p *Partials, fn func(dzdx, dzdy float64) float64) *grid.Grid {
	out := p.DzDx.Like()
	worker.Rows(out.Width, out.Height, func(b worker.Band) {
		for i := b.Start * out.Width; i < b.End*out.Width; i++ {
			x, y := p.DzDx.Data[i], p.DzDy.Data[i]
			if grid.IsNoData(x) || grid.IsNoData(y) {
				out.Data[i] = grid.NoData
				continue
			}
			out.Data[i] = fn(x, y)
		}
	})
	return out
}
