package pipeline

import (
	"time"

	"github.com/routrace/mapgen/internal/coastline"
)

// HighwayStats describes the processing of one highway
type HighwayStats struct {
	ID           string
	Ways         int
	Features     int
	CoordsBefore int
	CoordsAfter  int
	Fallbacks    int
	Refs         []string // ref groups, sorted
	FileSize     int
	Failed       bool
}

// Stats holds the result of a highways run
type Stats struct {
	Highways  []HighwayStats // in catalog order
	Written   int
	Failed    int
	Bytes     int64
	IndexSize int
	Duration  time.Duration
}

// CoastlineStats holds the result of a coastline run
type CoastlineStats struct {
	coastline.Stats
	FileSize int
}

// GenerateStats holds the combined result of a full generation
type GenerateStats struct {
	MetadataSize int
	Coastline    *CoastlineStats
	Highways     *Stats
	Duration     time.Duration
}
