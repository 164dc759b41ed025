package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/reliefkit/internal/gridio"
	"github.com/MeKo-Tech/reliefkit/internal/pipeline"
	"github.com/MeKo-Tech/reliefkit/internal/store"
	"github.com/MeKo-Tech/reliefkit/internal/worker"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate terrain and products for a range of seeds",
	Long: `Generate one terrain job per seed in parallel and derive the requested
products for each. Results go to a SQLite grid store (--store) or to
<output-dir>/seed-NNNN/<product>.<format>.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("seeds", "1-8", "Seeds to generate: 7, 1-8 or 1,4,9")
	batchCmd.Flags().String("products", "elevation,hillshade", "Products per job (elevation, hillshade, slope, aspect, mean, ndvi or all)")
	batchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	batchCmd.Flags().Bool("progress", true, "Show progress bar")
	batchCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some jobs fail")
	batchCmd.Flags().Bool("force", false, "Regenerate jobs whose outputs already exist")
	batchCmd.Flags().String("store", "", "SQLite grid store to write into (e.g. grids.db)")
	batchCmd.Flags().String("format", "asc", "Folder output format: asc, png or tif")

	addJobFlags(batchCmd, "batch")
	bindFlags(batchCmd, []flagBinding{
		{"batch.seeds", "seeds"},
		{"batch.products", "products"},
		{"batch.workers", "workers"},
		{"batch.progress", "progress"},
		{"batch.allow_failures", "allow-failures"},
		{"batch.force", "force"},
		{"batch.store", "store"},
		{"batch.format", "format"},
	})
}

func runBatch(cmd *cobra.Command, args []string) error {
	workers := viper.GetInt("batch.workers")
	showProgress := viper.GetBool("batch.progress")
	allowFailures := viper.GetBool("batch.allow_failures")
	force := viper.GetBool("batch.force")
	storePath := viper.GetString("batch.store")
	format := gridio.Format(strings.ToLower(viper.GetString("batch.format")))
	outputDir := viper.GetString("output-dir")

	if logger == nil {
		initLogging()
	}

	seeds, err := parseSeeds(viper.GetString("batch.seeds"))
	if err != nil {
		return fmt.Errorf("invalid seeds: %w", err)
	}
	cfg, err := jobConfig("batch")
	if err != nil {
		return err
	}
	if cfg.Products, err = pipeline.ParseProducts(viper.GetString("batch.products")); err != nil {
		return err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		sink        pipeline.Sink
		storeWriter *store.Writer
	)
	if storePath != "" {
		w, err := store.Create(storePath, store.Metadata{
			Name:        "reliefkit",
			Description: fmt.Sprintf("%d jobs of %dx%d cells", len(seeds), cfg.Width, cfg.Height),
			Version:     "1",
			Products:    pipeline.Names(cfg.Products),
		})
		if err != nil {
			return fmt.Errorf("failed to create grid store: %w", err)
		}
		// Released here only on early returns; the normal path closes below.
		defer func() {
			if storeWriter != nil {
				storeWriter.Close() // nolint:errcheck
			}
		}()
		storeWriter = w
		sink = w
	} else {
		if _, err := gridio.FormatFromPath("x." + string(format)); err != nil {
			return fmt.Errorf("invalid format %q: must be asc, png or tif", format)
		}
		if outputDir == "" {
			outputDir = "grids"
		}
		sink = pipeline.FolderSink{Dir: outputDir, Format: format}
	}

	logger.Info("Starting batch generation",
		"jobs", len(seeds),
		"products", strings.Join(pipeline.Names(cfg.Products), ","),
		"width", cfg.Width,
		"height", cfg.Height,
		"workers", workers,
		"store", storePath,
		"output_dir", outputDir,
	)

	gen, err := pipeline.NewGenerator(cfg, sink, logger)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	tasks := make([]worker.Task, 0, len(seeds))
	for _, seed := range seeds {
		tasks = append(tasks, worker.Task{
			Name:  pipeline.JobName(seed),
			Seed:  seed,
			Force: force,
		})
	}

	progress := worker.NewProgress(len(tasks), "jobs", showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Generator:  gen,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	failed := worker.Failed(results)
	for _, r := range failed {
		logger.Error("Job failed", "job", r.Task.String(), "error", r.Err)
	}
	failedCount := len(failed)

	logger.Info(progress.Summary())

	if storeWriter != nil {
		w := storeWriter
		storeWriter = nil
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to close grid store: %w", err)
		}
	}

	if failedCount > 0 {
		if !allowFailures {
			return fmt.Errorf("%d of %d jobs failed", failedCount, len(tasks))
		}
		logger.Warn("Some jobs failed, continuing due to --allow-failures", "failed_count", failedCount)
	}
	return nil
}
