package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/reliefkit/internal/gridio"
	"github.com/MeKo-Tech/reliefkit/internal/pipeline"
	"github.com/MeKo-Tech/reliefkit/internal/shade"
)

var deriveCmd = &cobra.Command{
	Use:   "derive <elevation.asc>",
	Short: "Derive surface products from an elevation grid",
	Long: `Read an ESRI ASCII elevation grid and compute hillshade, slope, aspect
and focal mean products concurrently. Each product is written as
<name>_<product>.<format> next to the input, or into --output-dir.`,
	Args: cobra.ExactArgs(1),
	RunE: runDerive,
}

func init() {
	rootCmd.AddCommand(deriveCmd)

	deriveCmd.Flags().String("products", "hillshade,slope,aspect", "Products to derive: hillshade, slope, aspect, mean (or all)")
	deriveCmd.Flags().String("format", "asc", "Output format: asc, png or tif")
	deriveCmd.Flags().Float64("azimuth", shade.DefaultAzimuth, "Hillshade light azimuth in degrees")
	deriveCmd.Flags().Float64("altitude", shade.DefaultAltitude, "Hillshade light altitude in degrees")
	deriveCmd.Flags().Int("mean-passes", 1, "Focal mean smoothing passes")
	deriveCmd.Flags().StringSlice("mean-exclude", []string{"nan"}, "Cell values left out of focal means")

	bindFlags(deriveCmd, []flagBinding{
		{"derive.products", "products"},
		{"derive.format", "format"},
		{"derive.azimuth", "azimuth"},
		{"derive.altitude", "altitude"},
		{"derive.mean_passes", "mean-passes"},
		{"derive.mean_exclude", "mean-exclude"},
	})
}

func runDerive(cmd *cobra.Command, args []string) error {
	input := args[0]
	format := gridio.Format(strings.ToLower(viper.GetString("derive.format")))
	outputDir := viper.GetString("output-dir")

	if logger == nil {
		initLogging()
	}

	if _, err := gridio.FormatFromPath("x." + string(format)); err != nil {
		return fmt.Errorf("invalid format %q: must be asc, png or tif", format)
	}

	products, err := pipeline.ParseProducts(viper.GetString("derive.products"))
	if err != nil {
		return err
	}
	for _, p := range products {
		if p == pipeline.NDVI {
			return fmt.Errorf("ndvi needs two bands; use the ndvi command")
		}
	}

	cfg := pipeline.DefaultConfig()
	cfg.Azimuth = viper.GetFloat64("derive.azimuth")
	cfg.Altitude = viper.GetFloat64("derive.altitude")
	cfg.MeanPasses = viper.GetInt("derive.mean_passes")
	if cfg.MeanExclude, err = parseFloats(viper.GetStringSlice("derive.mean_exclude")); err != nil {
		return fmt.Errorf("invalid mean-exclude: %w", err)
	}

	if outputDir == "" {
		outputDir = filepath.Dir(input)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	elevation, err := gridio.ReadASCIIFile(input)
	if err != nil {
		return err
	}
	stats := elevation.Stats()
	logger.Info("Elevation loaded",
		"path", input,
		"width", elevation.Width,
		"height", elevation.Height,
		"min", stats.Min,
		"max", stats.Max,
		"nodata", stats.NoData,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := stem(input)

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range products {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := pipeline.Derive(p, elevation, 0, cfg)
			if err != nil {
				return fmt.Errorf("failed to derive %s: %w", p, err)
			}
			path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.%s", base, p, format))
			if err := gridio.WriteFile(path, res); err != nil {
				return err
			}
			logger.Info("Product written", "product", p, "path", path)
			return nil
		})
	}
	return g.Wait()
}

// stem strips the directory and the extension (including a ".gz" suffix).
func stem(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".gz")
	return strings.TrimSuffix(name, filepath.Ext(name))
}
