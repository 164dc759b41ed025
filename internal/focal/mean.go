// Package focal implements neighbourhood (focal) filters over grids.
package focal

import (
	"math"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

// DefaultPasses is the number of smoothing passes callers should use by default.
const DefaultPasses = 1

// excluder matches cell values against an exclusion set. NaN matches NaN.
type excluder struct {
	values []float64
	nan    bool
}

func newExcluder(values []float64) excluder {
	e := excluder{}
	for _, v := range values {
		if math.IsNaN(v) {
			e.nan = true
			continue
		}
		e.values = append(e.values, v)
	}
	return e
}

func (e excluder) match(v float64) bool {
	if math.IsNaN(v) {
		return e.nan
	}
	for _, x := range e.values {
		if v == x {
			return true
		}
	}
	return false
}

// Mean smooths g with a 3x3 arithmetic mean, repeated passes times.
//
// Border cells average over the neighbours that exist. A cell whose current
// value is in excludes keeps its value and is left out of every neighbour's
// average, so sentinel values never bleed into adjacent cells. Each pass reads
// only the previous pass's output. passes == 0 returns a copy of g.
func Mean(g *grid.Grid, passes int, excludes ...float64) (*grid.Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if passes < 0 {
		return nil, grid.InvalidParam("passes", passes, "must be >= 0")
	}

	src := g.Clone()
	if passes == 0 {
		return src, nil
	}
	dst := g.Like()
	ex := newExcluder(excludes)
	for p := 0; p < passes; p++ {
		meanPass(src, dst, ex)
		src, dst = dst, src
	}
	return src, nil
}

// MeanInPlace is Mean writing the final result back into g.
func MeanInPlace(g *grid.Grid, passes int, excludes ...float64) error {
	out, err := Mean(g, passes, excludes...)
	if err != nil {
		return err
	}
	copy(g.Data, out.Data)
	return nil
}

func meanPass(src, dst *grid.Grid, ex excluder) {
	w, h := src.Width, src.Height
	worker.Rows(w, h, func(b worker.Band) {
		for r := b.Start; r < b.End; r++ {
			for c := 0; c < w; c++ {
				v := src.At(r, c)
				if ex.match(v) {
					dst.Set(r, c, v)
					continue
				}

				// Accumulate deviations from the centre so uniform
				// neighbourhoods reproduce v exactly. Equal neighbours add
				// nothing, which keeps constant ±Inf regions intact.
				dev, n := 0.0, 0
				for rr := r - 1; rr <= r+1; rr++ {
					if rr < 0 || rr >= h {
						continue
					}
					for cc := c - 1; cc <= c+1; cc++ {
						if cc < 0 || cc >= w {
							continue
						}
						nv := src.At(rr, cc)
						if ex.match(nv) {
							continue
						}
						if nv != v {
							dev += nv - v
						}
						n++
					}
				}
				// n >= 1: the cell itself is never excluded here.
				dst.Set(r, c, v+dev/float64(n))
			}
		}
	})
}
