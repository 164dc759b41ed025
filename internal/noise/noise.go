// Package noise samples deterministic, seedable gradient noise onto grids.
package noise

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

// Algorithm selects the gradient-noise construction.
type Algorithm string

const (
	// Perlin is classic lattice gradient noise with smoothstep interpolation.
	Perlin Algorithm = "perlin"
	// OpenSimplex is simplex-lattice gradient noise.
	OpenSimplex Algorithm = "opensimplex"
)

// DefaultAlgorithm is used when no algorithm option is given.
const DefaultAlgorithm = Perlin

// Single-octave Perlin parameters. With one octave alpha and beta have no effect.
const (
	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = int32(1)
)

// Frequency is the number of lattice periods spanning the grid on each axis.
type Frequency struct {
	X float64
	Y float64
}

// Uniform returns a Frequency with the same value on both axes.
func Uniform(f float64) Frequency { return Frequency{X: f, Y: f} }

func (f Frequency) validate() error {
	if f.X <= 0 || math.IsNaN(f.X) || math.IsInf(f.X, 0) {
		return grid.InvalidParam("frequency.x", f.X, "must be positive and finite")
	}
	if f.Y <= 0 || math.IsNaN(f.Y) || math.IsInf(f.Y, 0) {
		return grid.InvalidParam("frequency.y", f.Y, "must be positive and finite")
	}
	return nil
}

// Field is a lazily evaluated noise function of continuous coordinates.
// Values are roughly in [-1, 1]. Build fields with NewField; the zero Field
// is flat.
type Field struct {
	eval func(x, y float64) float64
	seed int64
	algo Algorithm
}

// NewField builds a field for the given seed and algorithm.
func NewField(seed int64, algo Algorithm) (*Field, error) {
	f := &Field{seed: seed, algo: algo}
	switch algo {
	case Perlin, "":
		p := perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)
		f.algo = Perlin
		f.eval = p.Noise2D
	case OpenSimplex:
		n := opensimplex.New(seed)
		f.eval = n.Eval2
	default:
		return nil, fmt.Errorf("%w: unknown noise algorithm %q", grid.ErrInvalidParameter, algo)
	}
	return f, nil
}

// Seed returns the seed the field was built from.
func (f *Field) Seed() int64 { return f.seed }

// Algorithm returns the noise construction in use.
func (f *Field) Algorithm() Algorithm { return f.algo }

// At evaluates the field at (x, y) in lattice units.
func (f *Field) At(x, y float64) float64 {
	if f.eval == nil {
		return 0
	}
	return f.eval(x, y)
}

type options struct {
	algo Algorithm
}

// Option configures Sample.
type Option func(*options)

// WithAlgorithm selects the noise construction.
func WithAlgorithm(a Algorithm) Option {
	return func(o *options) { o.algo = a }
}

// Sample evaluates a noise field on a height x width grid.
// Cell (r, c) is sampled at (c/width*freq.X, r/height*freq.Y).
func Sample(seed int64, freq Frequency, width, height int, opts ...Option) (*grid.Grid, error) {
	o := options{algo: DefaultAlgorithm}
	for _, opt := range opts {
		opt(&o)
	}

	if err := grid.CheckDims(width, height); err != nil {
		return nil, err
	}
	if err := freq.validate(); err != nil {
		return nil, err
	}

	field, err := NewField(seed, o.algo)
	if err != nil {
		return nil, err
	}

	out, err := grid.New(width, height)
	if err != nil {
		return nil, err
	}

	sx := freq.X / float64(width)
	sy := freq.Y / float64(height)
	worker.Rows(width, height, func(b worker.Band) {
		for r := b.Start; r < b.End; r++ {
			y := float64(r) * sy
			row := out.Row(r)
			for c := range row {
				row[c] = field.At(float64(c)*sx, y)
			}
		}
	})

	return out, nil
}
