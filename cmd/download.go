package cmd

import (
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/routrace/mapgen/internal/config"
	"github.com/routrace/mapgen/internal/download"
	"github.com/routrace/mapgen/internal/logger"
	"github.com/routrace/mapgen/internal/pipeline"
)

var (
	forceDownload bool
	downloadURL   string
	stateURL      string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the Japan extract into the cache directory",
	Long: `Download the Geofabrik Japan extract into the cache directory.

The replication state published next to the extract is recorded with the
cached copy. An existing copy is kept unless the published state is newer
or --force is given. Later runs of 'generate' and 'highways' without an
input file use the cached copy.`,
	Args: cobra.NoArgs,
	Run:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().BoolVar(&forceDownload, "force", false, "Download even when a cached copy exists")
	downloadCmd.Flags().StringVar(&downloadURL, "url", config.JapanPBFURL, "Extract URL")
	downloadCmd.Flags().StringVar(&stateURL, "state-url", config.JapanStateURL, "Replication state URL of the extract")
}

func runDownload(cmd *cobra.Command, args []string) {
	log := logger.Get()

	ctx, cancel := signalContext()
	defer cancel()

	fetcher := download.NewFetcher(cfg.CacheDir)
	fetcher.Progress = true

	path, state, err := fetcher.Update(ctx, downloadURL, stateURL, pipeline.PBFCacheName, forceDownload)
	if err != nil {
		exitWithError("download failed", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		exitWithError("failed to stat download", err)
	}
	fields := []zap.Field{
		zap.String("path", path),
		zap.String("size", humanize.IBytes(uint64(info.Size()))),
	}
	if state != nil {
		fields = append(fields, zap.Time("data_timestamp", state.Timestamp))
	}
	log.Info("Extract ready", fields...)
}
