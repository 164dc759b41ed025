package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/reliefkit/internal/grid"
	"github.com/MeKo-Tech/reliefkit/internal/gridio"
	"github.com/MeKo-Tech/reliefkit/internal/ndvi"
	"github.com/MeKo-Tech/reliefkit/internal/noise"
)

var ndviCmd = &cobra.Command{
	Use:   "ndvi",
	Short: "Compute the normalized difference vegetation index",
	Long: `Compute (nir - red) / (nir + red) from two ESRI ASCII bands of equal
shape. Without --nir and --red both bands are synthesised from noise seeds
(--seed and --seed+1), which is handy for demos.`,
	RunE: runNDVI,
}

func init() {
	rootCmd.AddCommand(ndviCmd)

	ndviCmd.Flags().String("nir", "", "Near-infrared band (.asc or .asc.gz)")
	ndviCmd.Flags().String("red", "", "Red band (.asc or .asc.gz)")
	ndviCmd.Flags().StringP("out", "o", "ndvi.asc", "Output file (.asc, .asc.gz, .png, .tif)")
	ndviCmd.Flags().Int64("seed", 1, "Seed of the synthetic nir band")
	ndviCmd.Flags().Int("width", 256, "Width of synthetic bands")
	ndviCmd.Flags().Int("height", 256, "Height of synthetic bands")
	ndviCmd.Flags().Float64("frequency", 8, "Noise frequency of synthetic bands")

	bindFlags(ndviCmd, []flagBinding{
		{"ndvi.nir", "nir"},
		{"ndvi.red", "red"},
		{"ndvi.out", "out"},
		{"ndvi.seed", "seed"},
		{"ndvi.width", "width"},
		{"ndvi.height", "height"},
		{"ndvi.frequency", "frequency"},
	})
}

func runNDVI(cmd *cobra.Command, args []string) error {
	nirPath := viper.GetString("ndvi.nir")
	redPath := viper.GetString("ndvi.red")
	out := viper.GetString("ndvi.out")
	if dir := viper.GetString("output-dir"); dir != "" && !filepath.IsAbs(out) {
		out = filepath.Join(dir, out)
	}

	if logger == nil {
		initLogging()
	}

	if (nirPath == "") != (redPath == "") {
		return fmt.Errorf("--nir and --red must be given together")
	}

	nir, red, err := loadBands(nirPath, redPath)
	if err != nil {
		return err
	}

	index, err := ndvi.NDVI(nir, red)
	if err != nil {
		return fmt.Errorf("failed to compute ndvi: %w", err)
	}

	var opts []gridio.ImageOption
	if f, _ := gridio.FormatFromPath(out); f != gridio.FormatASCII {
		opts = append(opts, gridio.WithRange(-1, 1))
	}
	if err := (fileSink{path: out, opts: opts}).WriteGrid("", "ndvi", index); err != nil {
		return err
	}

	s := index.Stats()
	logger.Info("NDVI written", "path", out, "min", s.Min, "max", s.Max, "mean", s.Mean)
	return nil
}

func loadBands(nirPath, redPath string) (*grid.Grid, *grid.Grid, error) {
	if nirPath != "" {
		nir, err := gridio.ReadASCIIFile(nirPath)
		if err != nil {
			return nil, nil, err
		}
		red, err := gridio.ReadASCIIFile(redPath)
		if err != nil {
			return nil, nil, err
		}
		return nir, red, nil
	}

	seed := viper.GetInt64("ndvi.seed")
	width, height := viper.GetInt("ndvi.width"), viper.GetInt("ndvi.height")
	freq := noise.Uniform(viper.GetFloat64("ndvi.frequency"))
	logger.Info("Synthesizing bands", "seed", seed, "width", width, "height", height)

	nir, err := ndvi.SyntheticBand(seed, freq, width, height)
	if err != nil {
		return nil, nil, err
	}
	red, err := ndvi.SyntheticBand(seed+1, freq, width, height)
	if err != nil {
		return nil, nil, err
	}
	return nir, red, nil
}
