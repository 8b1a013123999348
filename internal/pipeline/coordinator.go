// Package pipeline runs the generation stages: discovery, node loading,
// per-highway assembly and simplification, and writing the documents.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime/debug"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/routrace/mapgen/internal/assemble"
	"github.com/routrace/mapgen/internal/catalog"
	"github.com/routrace/mapgen/internal/coastline"
	"github.com/routrace/mapgen/internal/config"
	"github.com/routrace/mapgen/internal/discover"
	"github.com/routrace/mapgen/internal/download"
	"github.com/routrace/mapgen/internal/extract"
	"github.com/routrace/mapgen/internal/feature"
	"github.com/routrace/mapgen/internal/group"
	"github.com/routrace/mapgen/internal/highway"
	"github.com/routrace/mapgen/internal/logger"
	"github.com/routrace/mapgen/internal/metrics"
	"github.com/routrace/mapgen/internal/nodeindex"
	"github.com/routrace/mapgen/internal/output"
	"github.com/routrace/mapgen/internal/simplify"
)

// Document paths relative to the output directory
const (
	MetadataPath     = "data/metadata.json"
	CoastlinePath    = "data/coastline.json"
	HighwayIndexPath = "data/highways/index.json"
	highwaysDir      = "data/highways"
)

// PBFCacheName is the cached file name of the downloaded extract
const PBFCacheName = "japan-latest.osm.pbf"

const coastlineCacheName = "japan.geojson"

// HighwayPath returns the document path of a highway
func HighwayPath(id string) string {
	return path.Join(highwaysDir, id+".json")
}

// Coordinator orchestrates a generation run
type Coordinator struct {
	cfg       *config.Config
	cat       *catalog.Catalog
	resolver  *group.Resolver
	writer    *output.Writer
	fetcher   *download.Fetcher
	diags     *highway.Diagnostics
	collector *metrics.Collector
}

// NewCoordinator creates a coordinator. The configuration's timestamp must
// already be resolved.
func NewCoordinator(cfg *config.Config, cat *catalog.Catalog) *Coordinator {
	fetcher := download.NewFetcher(cfg.CacheDir)
	fetcher.Progress = true

	return &Coordinator{
		cfg:      cfg,
		cat:      cat,
		resolver: cat.Resolver(),
		writer:   output.NewWriter(cfg.OutputDir),
		fetcher:  fetcher,
		diags:    highway.NewDiagnostics(),
	}
}

// Diagnostics returns the report collected so far
func (c *Coordinator) Diagnostics() *highway.Diagnostics {
	return c.diags
}

// startMetrics starts system metrics collection when an interval is set.
// The returned function stops it.
func (c *Coordinator) startMetrics(ctx context.Context) func() {
	if c.cfg.MetricsInterval <= 0 || c.collector != nil {
		return func() {}
	}
	log := logger.Get()

	metricsCtx, cancel := context.WithCancel(ctx)
	c.collector = metrics.NewCollector(c.cfg.MetricsInterval, log)
	go c.collector.Start(metricsCtx)
	log.Info("System metrics collection started",
		zap.Duration("interval", c.cfg.MetricsInterval))

	return func() {
		cancel()
		if peak := c.collector.PeakRSS(); peak > 0 {
			log.Info("Peak memory", zap.String("rss", output.FormatSize(int(peak))))
		}
		c.collector = nil
	}
}

func (c *Coordinator) setStage(stage string) {
	if c.collector != nil {
		c.collector.SetStage(stage)
	}
}

// OpenSource opens the configured input, downloading the Japan extract
// into the cache when no input file is given
func (c *Coordinator) OpenSource(ctx context.Context) (*extract.File, error) {
	input := c.cfg.InputFile
	if input == "" {
		p, err := c.fetcher.Fetch(ctx, config.JapanPBFURL, PBFCacheName, false)
		if err != nil {
			return nil, fmt.Errorf("failed to download extract: %w", err)
		}
		input = p
	}
	return extract.NewFile(input, c.cfg.Workers)
}

// Generate writes the metadata, the coastline and every selected highway
func (c *Coordinator) Generate(ctx context.Context) (*GenerateStats, error) {
	log := logger.Get()
	start := time.Now()
	stopMetrics := c.startMetrics(ctx)
	defer stopMetrics()

	stats := &GenerateStats{}
	var err error

	if stats.MetadataSize, err = c.Metadata(); err != nil {
		return nil, err
	}

	if stats.Coastline, err = c.Coastline(ctx); err != nil {
		return nil, err
	}

	src, err := c.OpenSource(ctx)
	if err != nil {
		return nil, err
	}
	if stats.Highways, err = c.Highways(ctx, src); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	log.Info("Generation complete",
		zap.Int("highways", stats.Highways.Written),
		zap.Int("failed", stats.Highways.Failed),
		zap.Duration("duration", stats.Duration.Round(time.Millisecond)))
	return stats, nil
}

// Metadata writes data/metadata.json and returns its size
func (c *Coordinator) Metadata() (int, error) {
	doc, err := feature.Encode(MetadataPath, feature.NewMetadata(c.cfg.Timestamp))
	if err != nil {
		return 0, err
	}
	return c.writer.Write(doc)
}

// Coastline loads, simplifies and writes the coastline document
func (c *Coordinator) Coastline(ctx context.Context) (*CoastlineStats, error) {
	c.setStage("coastline")

	r, err := c.fetcher.Open(ctx, c.cfg.CoastlineSource, coastlineCacheName)
	if err != nil {
		return nil, fmt.Errorf("failed to open coastline source: %w", err)
	}
	defer r.Close()

	fc, err := coastline.Load(r)
	if err != nil {
		return nil, err
	}

	info := feature.CoastlineInfo{
		Name:      coastline.Name,
		Source:    coastline.Source,
		Tolerance: c.cfg.Tolerance,
	}
	collection, cs := coastline.Build(fc, info, c.cfg.Precision)

	doc, err := feature.Encode(CoastlinePath, collection)
	if err != nil {
		return nil, err
	}
	n, err := c.writer.Write(doc)
	if err != nil {
		return nil, err
	}
	return &CoastlineStats{Stats: cs, FileSize: n}, nil
}

// Highways discovers, assembles, simplifies and writes the selected
// highways plus the highway index. Name filters that select nothing only
// log a warning. A highway that fails is reported in the
// diagnostics and left out of the index; the others still complete.
func (c *Coordinator) Highways(ctx context.Context, src extract.Source) (*Stats, error) {
	log := logger.Get()
	start := time.Now()
	stopMetrics := c.startMetrics(ctx)
	defer stopMetrics()

	defs := c.cat.Select(c.cfg.HighwayNames)
	if len(defs) == 0 {
		// nothing is written, so an earlier index stays in place
		log.Warn("No highways match the given names", zap.Strings("names", c.cfg.HighwayNames))
		return &Stats{Duration: time.Since(start)}, nil
	}

	log.Info("Starting highway generation",
		zap.String("input", src.String()),
		zap.Int("highways", len(defs)),
		zap.Int("workers", c.cfg.Workers),
		zap.Float64("tolerance", c.cfg.Tolerance),
		zap.String("node_index", c.cfg.NodeIndex))

	// Pass 1: ways and relations
	c.setStage("discover")
	ix, err := discover.New(defs, c.diags).Run(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	cls := discover.Classify(ix, c.resolver)

	// Pass 2: node coordinates of the retained ways
	c.setStage("nodes")
	nodes, err := nodeindex.New(c.cfg.NodeIndex, c.cfg.CacheDir, ix.Len()*16, nodeindex.DefaultMaxNodeID)
	if err != nil {
		return nil, err
	}
	defer nodes.Close()

	if err := assemble.LoadNodes(ctx, src, ix, nodes); err != nil {
		return nil, err
	}

	// Per-highway fan-out
	c.setStage("highways")
	asm := assemble.New(ix, nodes, c.diags)
	progress := NewProgressTracker(int64(len(defs)), "highways")
	results := make([]HighwayStats, len(defs))
	entries := make([]*feature.IndexEntry, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for i, def := range defs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i].ID = def.ID
			err := c.protect(def.ID, func() error {
				hs, entry, err := c.highway(asm, cls, def)
				if err != nil {
					return err
				}
				results[i], entries[i] = hs, entry
				return nil
			})
			if errors.Is(err, errHighwayFailed) {
				results[i].Failed = true
				err = nil
			}

			p := progress.Done()
			log.Debug("Highway done",
				zap.String("highway", def.ID),
				zap.Int64("done", p.Current),
				zap.Int64("total", p.Total),
				zap.String("eta", FormatETA(p.ETA)))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{Highways: results}
	var written []feature.IndexEntry
	for i, e := range entries {
		if e == nil {
			stats.Failed++
			continue
		}
		written = append(written, *e)
		stats.Written++
		stats.Bytes += int64(results[i].FileSize)
	}

	doc, err := feature.Encode(HighwayIndexPath, feature.BuildIndex(c.cat, written))
	if err != nil {
		return nil, err
	}
	if stats.IndexSize, err = c.writer.Write(doc); err != nil {
		return nil, err
	}

	c.diags.Log(logger.Named("diagnostics"))

	stats.Duration = time.Since(start)
	p := progress.Calculate()
	log.Info("Highway generation complete",
		zap.Int("written", stats.Written),
		zap.Int("failed", stats.Failed),
		zap.String("size", output.FormatSize(int(stats.Bytes))),
		zap.String("rate", FormatThroughput(p.Throughput)),
		zap.Duration("duration", stats.Duration.Round(time.Millisecond)))
	return stats, nil
}

var errHighwayFailed = errors.New("highway failed")

// protect runs fn for one highway. A panic is recorded as a HighwayFailed
// diagnostic and reported as errHighwayFailed; other errors pass through.
func (c *Coordinator) protect(highwayID string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Error("Highway processing panicked",
				zap.String("highway", highwayID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			c.diags.Add(highway.Diagnostic{
				Kind:      highway.HighwayFailed,
				HighwayID: highwayID,
				Detail:    fmt.Sprint(r),
			})
			err = errHighwayFailed
		}
	}()
	return fn()
}

// highway processes one highway. Only a write failure is returned as an
// error; encoding problems become a HighwayFailed diagnostic.
func (c *Coordinator) highway(asm *assemble.Assembler, cls *discover.Classification, def catalog.Definition) (HighwayStats, *feature.IndexEntry, error) {
	log := logger.Named("highway")
	wayIDs := cls.WayIDs(def.ID)
	hs := HighwayStats{ID: def.ID, Ways: len(wayIDs)}

	features := asm.Highway(def.ID, wayIDs)
	for i := range features {
		res := simplify.LineString(features[i].Line, c.cfg.Tolerance)
		if res.Fallback {
			hs.Fallbacks++
			c.diags.Add(highway.Diagnostic{
				Kind:      highway.SimplifyFallback,
				HighwayID: def.ID,
				WayID:     features[i].WayID,
				Detail:    "simplified line would self-intersect, kept original",
			})
		}
		hs.CoordsBefore += res.Before
		hs.CoordsAfter += res.After
		features[i].Line = res.Line
	}
	hs.Features = len(features)

	groups := feature.GroupByRef(features)
	for ref := range groups {
		hs.Refs = append(hs.Refs, ref)
	}
	sort.Strings(hs.Refs)
	if feature.ShouldSplitByRef(groups) {
		log.Info("Highway carries several refs",
			zap.String("highway", def.ID),
			zap.Strings("refs", hs.Refs))
	}

	doc, err := feature.Encode(HighwayPath(def.ID), feature.Highway(def, features, c.cfg.Precision))
	if err != nil {
		c.diags.Add(highway.Diagnostic{
			Kind:      highway.HighwayFailed,
			HighwayID: def.ID,
			Detail:    err.Error(),
		})
		return hs, nil, errHighwayFailed
	}

	n, err := c.writer.Write(doc)
	if err != nil {
		return hs, nil, err
	}
	hs.FileSize = n

	entry := feature.NewIndexEntry(def, features, c.resolver, n, c.cfg.Timestamp)

	log.Debug("Highway written",
		zap.String("highway", def.ID),
		zap.Int("ways", hs.Ways),
		zap.Int("features", hs.Features),
		zap.Int("coords_before", hs.CoordsBefore),
		zap.Int("coords_after", hs.CoordsAfter),
		zap.String("size", output.FormatSize(n)))
	return hs, &entry, nil
}
