package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/reliefkit/internal/gridio"
	"github.com/MeKo-Tech/reliefkit/internal/pipeline"
	"github.com/MeKo-Tech/reliefkit/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <grids.db>",
	Short: "Export grids from a grid store as files",
	Long: `Write grids held in a SQLite grid store as ESRI ASCII, PNG or TIFF files
laid out as <output-dir>/<job>/<product>.<format>. Images are 16-bit grayscale
stretched to each grid's value range unless --min/--max fix it.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("format", "png", "Output format: asc, png or tif")
	exportCmd.Flags().StringSlice("jobs", nil, "Only export these jobs (default: all)")
	exportCmd.Flags().StringSlice("products", nil, "Only export these products (default: all)")
	exportCmd.Flags().Float64("min", 0, "Value mapped to black (with --max)")
	exportCmd.Flags().Float64("max", 0, "Value mapped to white (with --min)")
	exportCmd.Flags().Int("preview-width", 0, "Resample images to this width")
	exportCmd.Flags().Int("preview-height", 0, "Resample images to this height")

	bindFlags(exportCmd, []flagBinding{
		{"export.format", "format"},
		{"export.jobs", "jobs"},
		{"export.products", "products"},
		{"export.min", "min"},
		{"export.max", "max"},
		{"export.preview_width", "preview-width"},
		{"export.preview_height", "preview-height"},
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	dbPath := args[0]
	format := gridio.Format(strings.ToLower(viper.GetString("export.format")))
	jobs := toSet(viper.GetStringSlice("export.jobs"))
	products := toSet(viper.GetStringSlice("export.products"))
	outputDir := viper.GetString("output-dir")

	if logger == nil {
		initLogging()
	}

	if _, err := gridio.FormatFromPath("x." + string(format)); err != nil {
		return fmt.Errorf("invalid format %q: must be asc, png or tif", format)
	}
	if outputDir == "" {
		outputDir = "export"
	}

	var opts []gridio.ImageOption
	if lo, hi := viper.GetFloat64("export.min"), viper.GetFloat64("export.max"); lo != 0 || hi != 0 {
		opts = append(opts, gridio.WithRange(lo, hi))
	}
	if w, h := viper.GetInt("export.preview_width"), viper.GetInt("export.preview_height"); w != 0 || h != 0 {
		opts = append(opts, gridio.WithSize(w, h))
	}

	r, err := store.OpenReader(dbPath)
	if err != nil {
		return err
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	keys, err := r.Keys()
	if err != nil {
		return err
	}

	logger.Info("Exporting grid store",
		"store", dbPath,
		"name", meta.Name,
		"grids", len(keys),
		"format", format,
		"output_dir", outputDir,
	)

	sink := pipeline.FolderSink{Dir: outputDir, Format: format, Options: opts}
	exported := 0
	for _, k := range keys {
		if (len(jobs) > 0 && !jobs[k.Job]) || (len(products) > 0 && !products[k.Product]) {
			continue
		}

		g, err := r.ReadGrid(k.Job, k.Product)
		if err != nil {
			return err
		}
		if err := sink.WriteGrid(k.Job, k.Product, g); err != nil {
			return fmt.Errorf("failed to export %s: %w", k, err)
		}
		logger.Debug("Grid exported", "grid", k.String(), "path", sink.Path(k.Job, k.Product))
		exported++
	}

	logger.Info("Export complete", "exported", exported, "output_dir", outputDir)
	return nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	return set
}
