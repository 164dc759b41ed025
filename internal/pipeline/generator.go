// Package pipeline chains terrain synthesis, bump layers and the derived
// surface products into one job and hands the results to a Sink.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/reliefkit/internal/bump"
	"github.com/MeKo-Tech/reliefkit/internal/focal"
	"github.com/MeKo-Tech/reliefkit/internal/gradient"
	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/ndvi"
	"github.com/MeKo-Tech/reliefkit/internal/noise"
	"github.com/MeKo-Tech/reliefkit/internal/shade"
	"github.com/MeKo-Tech/reliefkit/internal/terrain"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

// Config describes a job. Only the seed varies between jobs of a batch.
type Config struct {
	Products []Product
	XRange   [2]float64
	YRange   [2]float64

	Algorithm noise.Algorithm
	Width     int
	Height    int
	Octaves   int
	ZFactor   float64
	SeaLevel  float64

	// Bumps scatters this many features over the terrain. With BumpMax >
	// BumpMin only locations whose elevation lies in [BumpMin, BumpMax) rise.
	Bumps      int
	BumpHeight float64
	BumpMin    float64
	BumpMax    float64
	BumpSpread int

	Azimuth     float64
	Altitude    float64
	MeanPasses  int
	MeanExclude []float64

	// NDVIFrequency is the noise frequency of the synthetic nir/red bands.
	NDVIFrequency float64
}

// DefaultConfig returns a 512x512 job over the whole Web Mercator world.
func DefaultConfig() Config {
	return Config{
		Products:      []Product{Elevation, Hillshade},
		XRange:        [2]float64{terrain.DefaultFullExtent.Left(), terrain.DefaultFullExtent.Right()},
		YRange:        [2]float64{terrain.DefaultFullExtent.Bottom(), terrain.DefaultFullExtent.Top()},
		Algorithm:     noise.DefaultAlgorithm,
		Width:         512,
		Height:        512,
		Octaves:       terrain.DefaultOctaves,
		ZFactor:       terrain.DefaultZFactor,
		SeaLevel:      terrain.DefaultSeaLevel,
		BumpHeight:    1,
		Azimuth:       shade.DefaultAzimuth,
		Altitude:      shade.DefaultAltitude,
		MeanPasses:    focal.DefaultPasses,
		NDVIFrequency: 8,
	}
}

// Generator runs jobs and writes their products to a sink.
type Generator struct {
	sink   Sink
	logger *slog.Logger
	cfg    Config
}

// NewGenerator validates cfg and prepares a generator.
func NewGenerator(cfg Config, sink Sink, logger *slog.Logger) (*Generator, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink must not be nil")
	}
	if err := grid.CheckDims(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	if len(cfg.Products) == 0 {
		return nil, grid.InvalidParam("products", cfg.Products, "must not be empty")
	}
	if cfg.Bumps < 0 {
		return nil, grid.InvalidParam("bumps", cfg.Bumps, "must be >= 0")
	}
	if cfg.MeanPasses < 0 {
		return nil, grid.InvalidParam("mean-passes", cfg.MeanPasses, "must be >= 0")
	}

	return &Generator{cfg: cfg, sink: sink, logger: logger}, nil
}

// JobName is the sink key for a seed.
func JobName(seed int64) string {
	return fmt.Sprintf("seed-%04d", seed)
}

// Generate implements worker.Generator: it computes the configured products
// for task.Seed and writes them to the sink. Jobs whose outputs all exist are
// skipped unless task.Force is set.
func (g *Generator) Generate(ctx context.Context, task worker.Task) (string, error) {
	job := task.Name
	if job == "" {
		job = JobName(task.Seed)
	}

	if !task.Force && g.complete(job) {
		g.log().Info("Job already complete; skipping", "job", job)
		return job, nil
	}

	products, err := g.Products(ctx, task.Seed)
	if err != nil {
		return "", fmt.Errorf("job %s: %w", job, err)
	}

	for _, p := range g.cfg.Products {
		if err := g.sink.WriteGrid(job, string(p), products[p]); err != nil {
			return "", fmt.Errorf("job %s: failed to write %s: %w", job, p, err)
		}
	}
	g.log().Info("Job written", "job", job, "products", len(g.cfg.Products))
	return job, nil
}

func (g *Generator) complete(job string) bool {
	ec, ok := g.sink.(existenceChecker)
	if !ok {
		return false
	}
	for _, p := range g.cfg.Products {
		if !ec.Has(job, string(p)) {
			return false
		}
	}
	return true
}

// Products computes the configured products for seed without writing them.
func (g *Generator) Products(ctx context.Context, seed int64) (map[Product]*grid.Grid, error) {
	cfg := g.cfg

	g.log().Debug("Synthesizing terrain", "seed", seed, "width", cfg.Width, "height", cfg.Height)
	elevation, err := terrain.Generate(cfg.Width, cfg.Height, cfg.XRange, cfg.YRange,
		terrain.WithSeed(seed),
		terrain.WithOctaves(cfg.Octaves),
		terrain.WithZFactor(cfg.ZFactor),
		terrain.WithSeaLevel(cfg.SeaLevel),
		terrain.WithAlgorithm(cfg.Algorithm),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate terrain: %w", err)
	}

	if cfg.Bumps > 0 {
		if elevation, err = g.addBumps(elevation, seed); err != nil {
			return nil, err
		}
	}

	out := map[Product]*grid.Grid{Elevation: elevation}
	for _, p := range cfg.Products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, done := out[p]; done {
			continue
		}

		g.log().Debug("Deriving product", "seed", seed, "product", p)
		res, err := Derive(p, elevation, seed, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s: %w", p, err)
		}
		out[p] = res
	}
	return out, nil
}

func (g *Generator) addBumps(elevation *grid.Grid, seed int64) (*grid.Grid, error) {
	cfg := g.cfg

	fn := bump.Constant(cfg.BumpHeight)
	if cfg.BumpMax > cfg.BumpMin {
		fn = bump.RangeHeights(elevation, cfg.BumpMin, cfg.BumpMax, cfg.BumpHeight)
	}

	count := cfg.Bumps
	if n := elevation.Len(); count > n {
		count = n
	}

	bumps, err := bump.Bump(cfg.Width, cfg.Height, count, fn, bump.WithSeed(seed), bump.WithSpread(cfg.BumpSpread))
	if err != nil {
		return nil, fmt.Errorf("failed to scatter bumps: %w", err)
	}
	sum, err := grid.Add(elevation, bumps)
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// Derive computes a single product from an elevation grid.
// seed only affects NDVI, whose bands are synthesised from seed and seed+1.
func Derive(p Product, elevation *grid.Grid, seed int64, cfg Config) (*grid.Grid, error) {
	switch p {
	case Elevation:
		return elevation.Clone(), nil
	case Hillshade:
		return shade.Hillshade(elevation, shade.WithAzimuth(cfg.Azimuth), shade.WithAltitude(cfg.Altitude))
	case Slope:
		return gradient.Slope(elevation)
	case Aspect:
		return gradient.Aspect(elevation)
	case Smoothed:
		return focal.Mean(elevation, cfg.MeanPasses, cfg.MeanExclude...)
	case NDVI:
		return syntheticNDVI(elevation, seed, cfg.NDVIFrequency)
	}
	return nil, fmt.Errorf("%w: unknown product %q", grid.ErrInvalidParameter, p)
}

func syntheticNDVI(elevation *grid.Grid, seed int64, freq float64) (*grid.Grid, error) {
	if freq <= 0 {
		freq = DefaultConfig().NDVIFrequency
	}
	nir, err := ndvi.SyntheticBand(seed, noise.Uniform(freq), elevation.Width, elevation.Height)
	if err != nil {
		return nil, err
	}
	red, err := ndvi.SyntheticBand(seed+1, noise.Uniform(freq), elevation.Width, elevation.Height)
	if err != nil {
		return nil, err
	}
	if elevation.Extent != nil {
		b := *elevation.Extent
		nir.Extent = &b
	}
	return ndvi.NDVI(nir, red)
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}
