// Package terrain synthesizes fractal elevation surfaces from layered noise.
package terrain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/noise"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

const (
	// DefaultSeed seeds the first octave; octave i uses DefaultSeed+i.
	DefaultSeed int64 = 10
	// DefaultOctaves is the number of summed noise layers.
	DefaultOctaves = 16
	// DefaultZFactor is the elevation of the highest cell.
	DefaultZFactor = 4000.0
	// DefaultSeaLevel is the normalised height below which cells become sea (0).
	DefaultSeaLevel = 0.3
	// MaxOctaves is the largest accepted octave count.
	MaxOctaves = 30
)

// mercatorHalfWorld is the Web Mercator half-extent in metres.
const mercatorHalfWorld = 20037508.3427892

// DefaultFullExtent is the world square used to normalise sample coordinates,
// so terrain generated for neighbouring extents lines up.
var DefaultFullExtent = orb.Bound{
	Min: orb.Point{-mercatorHalfWorld, -mercatorHalfWorld},
	Max: orb.Point{mercatorHalfWorld, mercatorHalfWorld},
}

// Options controls terrain synthesis.
type Options struct {
	FullExtent orb.Bound
	Algorithm  noise.Algorithm
	Seed       int64
	Octaves    int
	ZFactor    float64
	SeaLevel   float64
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		FullExtent: DefaultFullExtent,
		Algorithm:  noise.DefaultAlgorithm,
		Seed:       DefaultSeed,
		Octaves:    DefaultOctaves,
		ZFactor:    DefaultZFactor,
		SeaLevel:   DefaultSeaLevel,
	}
}

// Option mutates Options.
type Option func(*Options)

// WithSeed sets the base seed.
func WithSeed(seed int64) Option { return func(o *Options) { o.Seed = seed } }

// WithOctaves sets the number of noise layers.
func WithOctaves(n int) Option { return func(o *Options) { o.Octaves = n } }

// WithZFactor sets the peak elevation.
func WithZFactor(z float64) Option { return func(o *Options) { o.ZFactor = z } }

// WithSeaLevel sets the normalised sea level in [0, 1).
func WithSeaLevel(level float64) Option { return func(o *Options) { o.SeaLevel = level } }

// WithFullExtent sets the extent that sample coordinates are normalised against.
func WithFullExtent(b orb.Bound) Option { return func(o *Options) { o.FullExtent = b } }

// WithAlgorithm selects the noise construction used for every octave.
func WithAlgorithm(a noise.Algorithm) Option { return func(o *Options) { o.Algorithm = a } }

func (o Options) validate() error {
	if o.Octaves < 1 {
		return grid.InvalidParam("octaves", o.Octaves, "must be >= 1")
	}
	if o.Octaves > MaxOctaves {
		return grid.InvalidParam("octaves", o.Octaves, fmt.Sprintf("must be <= %d", MaxOctaves))
	}
	if o.ZFactor <= 0 || math.IsInf(o.ZFactor, 0) || math.IsNaN(o.ZFactor) {
		return grid.InvalidParam("zfactor", o.ZFactor, "must be positive and finite")
	}
	if o.SeaLevel < 0 || o.SeaLevel >= 1 || math.IsNaN(o.SeaLevel) {
		return grid.InvalidParam("sea_level", o.SeaLevel, "must be within [0, 1)")
	}
	if o.FullExtent.Right() <= o.FullExtent.Left() || o.FullExtent.Top() <= o.FullExtent.Bottom() {
		return grid.InvalidParam("full_extent", o.FullExtent, "must have positive area")
	}
	return nil
}

func checkRange(name string, r [2]float64) error {
	if math.IsNaN(r[0]) || math.IsNaN(r[1]) || math.IsInf(r[0], 0) || math.IsInf(r[1], 0) {
		return grid.InvalidParam(name, r, "must be finite")
	}
	if r[1] <= r[0] {
		return grid.InvalidParam(name, r, "max must be greater than min")
	}
	return nil
}

// Generate builds a width x height elevation grid covering xRange x yRange.
//
// Octave i samples noise with seed Seed+i at frequency 2^i and weight 1/2^i.
// The weighted sum is cubed, normalised to [0, 1], cells below SeaLevel are
// set to 0 and the remaining land is rescaled to (0, ZFactor].
func Generate(width, height int, xRange, yRange [2]float64, opts ...Option) (*grid.Grid, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := grid.CheckDims(width, height); err != nil {
		return nil, err
	}
	if err := checkRange("x_range", xRange); err != nil {
		return nil, err
	}
	if err := checkRange("y_range", yRange); err != nil {
		return nil, err
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	fields := make([]*noise.Field, o.Octaves)
	for i := range fields {
		f, err := noise.NewField(o.Seed+int64(i), o.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("octave %d: %w", i, err)
		}
		fields[i] = f
	}

	out, err := grid.New(width, height)
	if err != nil {
		return nil, err
	}
	out.WithExtent(xRange[0], xRange[1], yRange[0], yRange[1])

	fullW := o.FullExtent.Right() - o.FullExtent.Left()
	fullH := o.FullExtent.Top() - o.FullExtent.Bottom()
	u0 := (xRange[0] - o.FullExtent.Left()) / fullW
	u1 := (xRange[1] - o.FullExtent.Left()) / fullW
	v0 := (yRange[0] - o.FullExtent.Bottom()) / fullH
	v1 := (yRange[1] - o.FullExtent.Bottom()) / fullH
	du := (u1 - u0) / float64(width)
	dv := (v1 - v0) / float64(height)

	norm := 0.0
	for i := 0; i < o.Octaves; i++ {
		norm += 1 / math.Ldexp(1, i)
	}

	worker.Rows(width, height, func(b worker.Band) {
		for r := b.Start; r < b.End; r++ {
			// Row 0 is the northern edge.
			v := v1 - float64(r)*dv
			row := out.Row(r)
			for c := range row {
				u := u0 + float64(c)*du
				sum := 0.0
				for i, f := range fields {
					freq := math.Ldexp(1, i)
					sum += f.At(u*freq, v*freq) / freq
				}
				h := sum / norm
				row[c] = h * h * h
			}
		}
	})

	applySeaLevel(out, o.SeaLevel, o.ZFactor)
	return out, nil
}

// applySeaLevel normalises g to [0, 1], floods cells below level and rescales land to (0, z].
func applySeaLevel(g *grid.Grid, level, z float64) {
	s := g.Stats()
	span := s.Max - s.Min
	for i, v := range g.Data {
		n := 0.0
		if span > 0 {
			n = (v - s.Min) / span
		}
		if n <= level {
			g.Data[i] = 0
			continue
		}
		g.Data[i] = (n - level) / (1 - level) * z
	}
}
