package cmd

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/routrace/mapgen/internal/logger"
	"github.com/routrace/mapgen/internal/output"
	"github.com/routrace/mapgen/internal/pipeline"
)

var coastlineCmd = &cobra.Command{
	Use:   "coastline",
	Short: "Generate the simplified coastline document",
	Long: `Load the coastline GeoJSON, flatten every polygon ring and line into
one MultiLineString, simplify it and write data/coastline.json.

The source may be a URL (downloaded into the cache directory once) or a
local file.`,
	Args: cobra.NoArgs,
	Run:  runCoastline,
}

func init() {
	rootCmd.AddCommand(coastlineCmd)

	coastlineCmd.Flags().StringVar(&cfg.CoastlineSource, "source", cfg.CoastlineSource, "Coastline GeoJSON URL or file")
	addProcessingFlags(coastlineCmd)
}

func runCoastline(cmd *cobra.Command, args []string) {
	cat := prepare()
	log := logger.Get()

	ctx, cancel := signalContext()
	defer cancel()

	stats, err := pipeline.NewCoordinator(cfg, cat).Coastline(ctx)
	if err != nil {
		exitWithError("coastline generation failed", err)
	}

	log.Info("Coastline complete",
		zap.Int("lines", stats.Lines),
		zap.Int("coords_before", stats.Before),
		zap.Int("coords_after", stats.After),
		zap.String("size", output.FormatSize(stats.FileSize)),
	)
}
