package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Node index backends
const (
	NodeIndexMemory = "mem"
	NodeIndexMmap   = "mmap"
)

// Well-known sources
const (
	JapanPBFURL       = "https://download.geofabrik.de/asia/japan-latest.osm.pbf"
	JapanStateURL     = "https://download.geofabrik.de/asia/japan-updates/state.txt"
	JapanCoastlineURL = "https://raw.githubusercontent.com/dataofjapan/land/master/japan.geojson"
)

// Config holds the global configuration for a generation run
type Config struct {
	// Input settings
	InputFile       string // .osm.pbf or .osm extract; empty = cached download
	CatalogFile     string // YAML catalog override; empty = embedded default
	CoastlineSource string // URL or local path of the coastline GeoJSON
	CacheDir        string // Download cache

	// Output settings
	OutputDir string // Base directory; documents go under <OutputDir>/data

	// Processing settings
	Workers   int
	Tolerance float64 // Simplification tolerance in degrees
	Precision int     // Decimal places kept in output coordinates
	NodeIndex string  // "mem" or "mmap"

	// Selection
	HighwayNames []string // Partial name filters; empty = whole catalog

	// Reproducibility: timestamp stamped into index and metadata
	Timestamp time.Time

	// Logging and metrics
	Verbose         bool
	LogFile         string        // Path to log file (empty = no file logging)
	MetricsInterval time.Duration // Interval for system metrics logging, 0 disables
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		CoastlineSource: JapanCoastlineURL,
		CacheDir:        "./cache",
		OutputDir:       ".",
		Workers:         runtime.NumCPU(),
		Tolerance:       0.001, // ~100m at Japan's latitude
		Precision:       6,
		NodeIndex:       NodeIndexMemory,
		MetricsInterval: 30 * time.Second,
	}
}

// DataDir returns the directory all documents are written under
func (c *Config) DataDir() string {
	return filepath.Join(c.OutputDir, "data")
}

// HighwaysDir returns the directory per-highway documents are written under
func (c *Config) HighwaysDir() string {
	return filepath.Join(c.DataDir(), "highways")
}

// CachedPBFPath returns where the downloaded Japan extract is cached
func (c *Config) CachedPBFPath() string {
	return filepath.Join(c.CacheDir, "japan-latest.osm.pbf")
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative: %g", c.Tolerance)
	}
	if c.Precision < 0 || c.Precision > 10 {
		return fmt.Errorf("precision must be between 0 and 10, got %d", c.Precision)
	}
	switch c.NodeIndex {
	case NodeIndexMemory, NodeIndexMmap:
	default:
		return fmt.Errorf("unknown node index %q (want %s or %s)", c.NodeIndex, NodeIndexMemory, NodeIndexMmap)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	return nil
}

// ResolveTimestamp fills Timestamp when it was not set explicitly.
// SOURCE_DATE_EPOCH wins over the wall clock so repeated builds of the same
// extract produce identical bytes.
func (c *Config) ResolveTimestamp(now func() time.Time) error {
	if !c.Timestamp.IsZero() {
		c.Timestamp = c.Timestamp.UTC().Truncate(time.Second)
		return nil
	}
	if epoch := strings.TrimSpace(os.Getenv("SOURCE_DATE_EPOCH")); epoch != "" {
		secs, err := strconv.ParseInt(epoch, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SOURCE_DATE_EPOCH %q: %w", epoch, err)
		}
		c.Timestamp = time.Unix(secs, 0).UTC()
		return nil
	}
	c.Timestamp = now().UTC().Truncate(time.Second)
	return nil
}

// ParseTimestamp parses the --timestamp flag (RFC 3339 or unix seconds)
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: want RFC 3339 or unix seconds", s)
	}
	return t.UTC(), nil
}
