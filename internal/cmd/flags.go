package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/reliefkit/internal/noise"
	"github.com/MeKo-Tech/reliefkit/internal/pipeline"
	"github.com/MeKo-Tech/reliefkit/internal/terrain"
)

type flagBinding struct {
	key  string
	flag string
}

func bindFlags(cmd *cobra.Command, bindings []flagBinding) {
	for _, bf := range bindings {
		if err := viper.BindPFlag(bf.key, cmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// addJobFlags registers the terrain and product flags shared by the
// terrain and batch commands under the viper section prefix.
func addJobFlags(cmd *cobra.Command, prefix string) {
	def := pipeline.DefaultConfig()

	f := cmd.Flags()
	f.Int("width", def.Width, "Grid width in cells")
	f.Int("height", def.Height, "Grid height in cells")
	f.String("x-range", "", "Horizontal extent as min,max (default: whole Web Mercator world)")
	f.String("y-range", "", "Vertical extent as min,max (default: whole Web Mercator world)")
	f.Int("octaves", def.Octaves, fmt.Sprintf("Number of noise octaves (1-%d)", terrain.MaxOctaves))
	f.Float64("zfactor", def.ZFactor, "Elevation of the highest cell")
	f.Float64("sea-level", def.SeaLevel, "Normalised height below which cells become sea (0-1)")
	f.String("algorithm", string(def.Algorithm), "Noise algorithm: perlin or opensimplex")
	f.Int("bumps", 0, "Number of bump features scattered over the terrain")
	f.Float64("bump-height", def.BumpHeight, "Height added by each bump")
	f.Float64("bump-min", 0, "Only raise cells with elevation >= bump-min (needs bump-max)")
	f.Float64("bump-max", 0, "Only raise cells with elevation < bump-max")
	f.Int("bump-spread", 0, "Bump radius in cells (0 = single cell)")
	f.Float64("azimuth", def.Azimuth, "Hillshade light azimuth in degrees")
	f.Float64("altitude", def.Altitude, "Hillshade light altitude in degrees")
	f.Int("mean-passes", def.MeanPasses, "Focal mean smoothing passes")
	f.StringSlice("mean-exclude", nil, "Cell values left out of focal means, e.g. 0,nan")
	f.Float64("ndvi-frequency", def.NDVIFrequency, "Noise frequency of the synthetic NDVI bands")

	var bindings []flagBinding
	for _, name := range []string{
		"width", "height", "x-range", "y-range", "octaves", "zfactor", "sea-level", "algorithm",
		"bumps", "bump-height", "bump-min", "bump-max", "bump-spread",
		"azimuth", "altitude", "mean-passes", "mean-exclude", "ndvi-frequency",
	} {
		bindings = append(bindings, flagBinding{prefix + "." + strings.ReplaceAll(name, "-", "_"), name})
	}
	bindFlags(cmd, bindings)
}

// jobConfig reads the flags registered by addJobFlags.
func jobConfig(prefix string) (pipeline.Config, error) {
	key := func(name string) string { return prefix + "." + name }

	cfg := pipeline.DefaultConfig()
	cfg.Width = viper.GetInt(key("width"))
	cfg.Height = viper.GetInt(key("height"))
	cfg.Octaves = viper.GetInt(key("octaves"))
	cfg.ZFactor = viper.GetFloat64(key("zfactor"))
	cfg.SeaLevel = viper.GetFloat64(key("sea_level"))
	cfg.Algorithm = noise.Algorithm(strings.ToLower(viper.GetString(key("algorithm"))))
	cfg.Bumps = viper.GetInt(key("bumps"))
	cfg.BumpHeight = viper.GetFloat64(key("bump_height"))
	cfg.BumpMin = viper.GetFloat64(key("bump_min"))
	cfg.BumpMax = viper.GetFloat64(key("bump_max"))
	cfg.BumpSpread = viper.GetInt(key("bump_spread"))
	cfg.Azimuth = viper.GetFloat64(key("azimuth"))
	cfg.Altitude = viper.GetFloat64(key("altitude"))
	cfg.MeanPasses = viper.GetInt(key("mean_passes"))
	cfg.NDVIFrequency = viper.GetFloat64(key("ndvi_frequency"))

	var err error
	if cfg.MeanExclude, err = parseFloats(viper.GetStringSlice(key("mean_exclude"))); err != nil {
		return cfg, fmt.Errorf("invalid mean-exclude: %w", err)
	}
	if s := viper.GetString(key("x_range")); s != "" {
		if cfg.XRange, err = parseRange(s); err != nil {
			return cfg, fmt.Errorf("invalid x-range: %w", err)
		}
	}
	if s := viper.GetString(key("y_range")); s != "" {
		if cfg.YRange, err = parseRange(s); err != nil {
			return cfg, fmt.Errorf("invalid y-range: %w", err)
		}
	}
	return cfg, nil
}

// parseRange parses "min,max" with min < max.
func parseRange(s string) ([2]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]float64{}, fmt.Errorf("expected 2 comma-separated values, got %d", len(parts))
	}

	var r [2]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return [2]float64{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		r[i] = v
	}
	if r[0] >= r[1] {
		return [2]float64{}, fmt.Errorf("min (%g) must be < max (%g)", r[0], r[1])
	}
	return r, nil
}

const maxSeeds = 100000

// parseSeeds parses "3", "1-8" or "1,4,9" (ranges may appear in lists).
func parseSeeds(s string) ([]int64, error) {
	var seeds []int64
	seen := make(map[int64]bool)

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi := part, part
		// a leading '-' is a sign, not a range separator
		if i := strings.Index(part[1:], "-"); i >= 0 {
			lo, hi = part[:i+1], part[i+2:]
		}
		from, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", part, err)
		}
		to, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", part, err)
		}
		if from > to {
			return nil, fmt.Errorf("seed range %q is reversed", part)
		}
		if uint64(to-from) >= maxSeeds || len(seeds) >= maxSeeds {
			return nil, fmt.Errorf("too many seeds (max %d)", maxSeeds)
		}

		for i := uint64(0); i <= uint64(to-from); i++ {
			seed := from + int64(i)
			if !seen[seed] {
				seen[seed] = true
				seeds = append(seeds, seed)
			}
		}
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds given")
	}
	return seeds, nil
}

// parseFloats parses values such as "nan,-9999".
func parseFloats(values []string) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", v, err)
		}
		out = append(out, f)
	}
	return out, nil
}
