package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/routrace/mapgen/internal/catalog"
	"github.com/routrace/mapgen/internal/config"
	"github.com/routrace/mapgen/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	logFile         string
	metricsInterval time.Duration
	timestampStr    string
)

var rootCmd = &cobra.Command{
	Use:   "mapgen",
	Short: "Japanese expressway map data generator",
	Long: `mapgen builds the static map data for the expressway map from an
OpenStreetMap extract of Japan.

Features:
  - Two streaming passes over .osm.pbf or .osm extracts
  - Relation and prefix based grouping of expressway name variants
  - Topology-preserving line simplification
  - Reproducible GeoJSON output with file sizes in the highway index`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		// Initialize logger with optional file output
		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "Directory the data/ tree is written under")
	rootCmd.PersistentFlags().StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory for downloads and the node index")
	rootCmd.PersistentFlags().StringVar(&cfg.CatalogFile, "catalog", "", "Highway catalog YAML (default: built-in catalog)")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel workers")
	rootCmd.PersistentFlags().StringVar(&timestampStr, "timestamp", "", "Timestamp written to the index and metadata (RFC 3339 or unix seconds, default: SOURCE_DATE_EPOCH or now)")

	// Logging and metrics flags
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 30*time.Second, "Interval for system metrics logging, 0 disables (e.g., 10s, 1m)")
}

// addProcessingFlags registers the flags shared by commands that simplify
// and write geometry
func addProcessingFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "Simplification tolerance in degrees (0 disables)")
	cmd.Flags().IntVar(&cfg.Precision, "precision", cfg.Precision, "Decimal places kept in output coordinates")
}

// prepare validates the configuration, resolves the run timestamp and loads
// the catalog
func prepare() *catalog.Catalog {
	ts, err := config.ParseTimestamp(timestampStr)
	if err != nil {
		exitWithError("invalid timestamp", err)
	}
	cfg.Timestamp = ts
	if err := cfg.ResolveTimestamp(time.Now); err != nil {
		exitWithError("invalid timestamp", err)
	}

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		exitWithError("failed to load catalog", err)
	}
	log := logger.Get()
	for _, w := range cat.Warnings() {
		log.Warn("Catalog", zap.String("warning", w))
	}
	return cat
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	log := logger.Get()
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
