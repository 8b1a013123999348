package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/routrace/mapgen/internal/logger"
	"github.com/routrace/mapgen/internal/output"
	"github.com/routrace/mapgen/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate metadata, coastline and all highways",
	Long: `Generate the complete data/ tree:

  1. data/metadata.json
  2. data/coastline.json from the coastline source
  3. data/highways/<id>.json and data/highways/index.json from the extract

Without --input the Geofabrik Japan extract is downloaded into the cache
directory first (or reused when already cached).`,
	Args: cobra.NoArgs,
	Run:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&cfg.InputFile, "input", "i", "", "Input .osm.pbf or .osm file (default: cached Japan extract)")
	generateCmd.Flags().StringVar(&cfg.CoastlineSource, "coastline-source", cfg.CoastlineSource, "Coastline GeoJSON URL or file")
	generateCmd.Flags().StringVar(&cfg.NodeIndex, "node-index", cfg.NodeIndex, "Node coordinate index: mem or mmap")
	addProcessingFlags(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	cat := prepare()
	log := logger.Get()

	log.Info("Starting generation",
		zap.String("input", cfg.InputFile),
		zap.String("output", cfg.DataDir()),
		zap.Int("workers", cfg.Workers),
		zap.Time("timestamp", cfg.Timestamp))

	ctx, cancel := signalContext()
	defer cancel()

	totalStart := time.Now()
	stats, err := pipeline.NewCoordinator(cfg, cat).Generate(ctx)
	if err != nil {
		exitWithError("generation failed", err)
	}

	log.Info("Generate complete",
		zap.Duration("total_time", time.Since(totalStart).Round(time.Second)),
		zap.Int("highways", stats.Highways.Written),
		zap.Int("failed", stats.Highways.Failed),
		zap.String("highways_size", output.FormatSize(int(stats.Highways.Bytes))),
		zap.String("coastline_size", output.FormatSize(stats.Coastline.FileSize)),
	)
}
