package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/routrace/mapgen/internal/logger"
	"github.com/routrace/mapgen/internal/output"
	"github.com/routrace/mapgen/internal/pipeline"
)

var highwaysCmd = &cobra.Command{
	Use:   "highways [input.osm.pbf]",
	Short: "Generate highway documents and the highway index",
	Long: `Discover, assemble and simplify the catalog highways and write
data/highways/<id>.json plus data/highways/index.json.

  1. Pass 1: ways and road relations, matched against the catalog
  2. Pass 2: coordinates of the nodes the discovered ways reference
  3. Per-highway assembly, simplification and writing in parallel

--highway-name restricts the run to highways whose name contains the given
text (or whose id equals it); repeat the flag to select several.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHighways,
}

func init() {
	rootCmd.AddCommand(highwaysCmd)

	highwaysCmd.Flags().StringArrayVar(&cfg.HighwayNames, "highway-name", nil, "Only generate highways matching this name (repeatable)")
	highwaysCmd.Flags().StringVar(&cfg.NodeIndex, "node-index", cfg.NodeIndex, "Node coordinate index: mem or mmap")
	addProcessingFlags(highwaysCmd)
}

func runHighways(cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		cfg.InputFile = args[0]
	}
	cat := prepare()
	log := logger.Get()

	ctx, cancel := signalContext()
	defer cancel()

	coordinator := pipeline.NewCoordinator(cfg, cat)
	src, err := coordinator.OpenSource(ctx)
	if err != nil {
		exitWithError("failed to open input", err)
	}

	totalStart := time.Now()
	stats, err := coordinator.Highways(ctx, src)
	if err != nil {
		exitWithError("highway generation failed", err)
	}

	for _, hs := range stats.Highways {
		if hs.Failed {
			log.Warn("Highway failed", zap.String("highway", hs.ID))
			continue
		}
		log.Info("Highway",
			zap.String("id", hs.ID),
			zap.Int("features", hs.Features),
			zap.Int("coords_before", hs.CoordsBefore),
			zap.Int("coords_after", hs.CoordsAfter),
			zap.String("size", output.FormatSize(hs.FileSize)))
	}

	log.Info("Highways complete",
		zap.Duration("total_time", time.Since(totalStart).Round(time.Second)),
		zap.Int("written", stats.Written),
		zap.Int("failed", stats.Failed),
		zap.String("size", output.FormatSize(int(stats.Bytes))),
		zap.String("index_size", output.FormatSize(stats.IndexSize)),
	)
}
