// Package bump scatters discrete height features onto an empty grid.
package bump

import (
	"fmt"
	"math/rand"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

// DefaultSeed drives location selection when no seed option is given.
const DefaultSeed int64 = 10

// Location is an integer grid position; X is the column, Y the row.
type Location struct {
	X int
	Y int
}

// HeightFunc maps a batch of locations to one height per location.
// It is called once per Bump call with every selected location.
type HeightFunc func(locs []Location) []float64

// Constant returns a HeightFunc that assigns h to every location.
func Constant(h float64) HeightFunc {
	return func(locs []Location) []float64 {
		out := make([]float64, len(locs))
		for i := range out {
			out[i] = h
		}
		return out
	}
}

// RangeHeights returns a HeightFunc that assigns height where the reference
// value at the location lies in [minVal, maxVal), and 0 elsewhere.
// Locations outside ref or on NoData cells get 0.
func RangeHeights(ref *grid.Grid, minVal, maxVal, height float64) HeightFunc {
	return func(locs []Location) []float64 {
		out := make([]float64, len(locs))
		for i, l := range locs {
			if l.X < 0 || l.Y < 0 || l.X >= ref.Width || l.Y >= ref.Height {
				continue
			}
			v := ref.At(l.Y, l.X)
			if v >= minVal && v < maxVal {
				out[i] = height
			}
		}
		return out
	}
}

type options struct {
	seed   int64
	spread int
}

// Option configures Bump.
type Option func(*options)

// WithSeed sets the seed of the location stream.
func WithSeed(seed int64) Option { return func(o *options) { o.seed = seed } }

// WithSpread paints each feature as a (2r+1) x (2r+1) square clipped to the grid.
func WithSpread(r int) Option { return func(o *options) { o.spread = r } }

// Bump returns a width x height grid, zero except at count distinct
// pseudo-random locations whose values come from fn. A nil fn assigns 1.
// Features never accumulate within a call; callers sum layers with grid.Add.
func Bump(width, height, count int, fn HeightFunc, opts ...Option) (*grid.Grid, error) {
	o := options{seed: DefaultSeed}
	for _, opt := range opts {
		opt(&o)
	}

	if err := grid.CheckDims(width, height); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, grid.InvalidParam("count", count, "must be >= 0")
	}
	if count > width*height {
		return nil, grid.InvalidParam("count", count, fmt.Sprintf("exceeds the %d available cells", width*height))
	}
	if o.spread < 0 {
		return nil, grid.InvalidParam("spread", o.spread, "must be >= 0")
	}
	if fn == nil {
		fn = Constant(1)
	}

	locs := Locations(width, height, count, o.seed)
	heights := fn(locs)
	if len(heights) != len(locs) {
		return nil, fmt.Errorf("%w: height func returned %d values for %d locations",
			grid.ErrInvalidParameter, len(heights), len(locs))
	}

	out, err := grid.New(width, height)
	if err != nil {
		return nil, err
	}

	if o.spread == 0 {
		// Locations are distinct, so each cell is written by exactly one band.
		worker.Rows(1, len(locs), func(b worker.Band) {
			for i := b.Start; i < b.End; i++ {
				out.Set(locs[i].Y, locs[i].X, heights[i])
			}
		})
		return out, nil
	}

	// Spread squares can overlap; paint in selection order.
	for i, l := range locs {
		paintSquare(out, l, o.spread, heights[i])
	}
	return out, nil
}

func paintSquare(g *grid.Grid, l Location, r int, h float64) {
	for y := l.Y - r; y <= l.Y+r; y++ {
		if y < 0 || y >= g.Height {
			continue
		}
		for x := l.X - r; x <= l.X+r; x++ {
			if x < 0 || x >= g.Width {
				continue
			}
			g.Set(y, x, h)
		}
	}
}

// Locations draws count distinct cells of a width x height grid using Floyd's
// sampling algorithm on a math/rand stream seeded with seed. The result order
// is the draw order. count must not exceed width*height.
func Locations(width, height, count int, seed int64) []Location {
	n := width * height
	rng := rand.New(rand.NewSource(seed))
	chosen := make(map[int]struct{}, count)
	locs := make([]Location, 0, count)

	for j := n - count; j < n; j++ {
		t := rng.Intn(j + 1)
		if _, dup := chosen[t]; dup {
			t = j
		}
		chosen[t] = struct{}{}
		locs = append(locs, Location{X: t % width, Y: t / width})
	}
	return locs
}
