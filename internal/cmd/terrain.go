package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/gridio"
	"github.com/MeKo-Tech/reliefkit/internal/pipeline"
	"github.com/MeKo-Tech/reliefkit/internal/terrain"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

var terrainCmd = &cobra.Command{
	Use:   "terrain",
	Short: "Synthesize a terrain elevation grid",
	Long: `Synthesize fractal terrain from layered noise, optionally scatter bump
features over it, and write the elevation grid. The output format follows the
file extension: .asc (or .asc.gz), .png or .tif.`,
	RunE: runTerrain,
}

func init() {
	rootCmd.AddCommand(terrainCmd)

	terrainCmd.Flags().Int64("seed", terrain.DefaultSeed, "Noise seed")
	terrainCmd.Flags().StringP("out", "o", "terrain.asc", "Output file (.asc, .asc.gz, .png, .tif)")

	addJobFlags(terrainCmd, "terrain")
	bindFlags(terrainCmd, []flagBinding{
		{"terrain.seed", "seed"},
		{"terrain.out", "out"},
	})
}

// fileSink writes every product it receives to one path.
type fileSink struct {
	path string
	opts []gridio.ImageOption
}

func (s fileSink) WriteGrid(_, _ string, g *grid.Grid) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	return gridio.WriteFile(s.path, g, s.opts...)
}

func runTerrain(cmd *cobra.Command, args []string) error {
	seed := viper.GetInt64("terrain.seed")
	out := viper.GetString("terrain.out")
	if dir := viper.GetString("output-dir"); dir != "" && !filepath.IsAbs(out) {
		out = filepath.Join(dir, out)
	}

	if logger == nil {
		initLogging()
	}

	if _, err := gridio.FormatFromPath(out); err != nil {
		return err
	}

	cfg, err := jobConfig("terrain")
	if err != nil {
		return err
	}
	cfg.Products = []pipeline.Product{pipeline.Elevation}

	logger.Info("Synthesizing terrain",
		"seed", seed,
		"width", cfg.Width,
		"height", cfg.Height,
		"octaves", cfg.Octaves,
		"algorithm", cfg.Algorithm,
		"bumps", cfg.Bumps,
		"out", out,
	)

	gen, err := pipeline.NewGenerator(cfg, fileSink{path: out}, logger)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}
	if _, err := gen.Generate(context.Background(), worker.Task{Name: pipeline.JobName(seed), Seed: seed, Force: true}); err != nil {
		return fmt.Errorf("failed to generate terrain: %w", err)
	}

	logger.Info("Terrain written", "path", out)
	return nil
}
