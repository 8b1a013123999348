package nodeindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

const (
	// Each node entry: lat (uint32) + lon (uint32) = 8 bytes, stored as
	// (degrees + offset) * 1e7 + 1 so that a zeroed entry means "absent"
	entrySize = 8
	scale     = 1e7

	// DefaultMaxNodeID covers current planet node ids with headroom
	DefaultMaxNodeID = 16_000_000_000
)

// ErrNodeIDRange is returned when a node id does not fit the mapped file
var ErrNodeIDRange = errors.New("node id outside mmap index range")

// MmapIndex is a memory-mapped node coordinate index.
// Node coordinates are stored at offset = nodeID * 8 in a sparse file,
// giving O(1) lookup without keeping coordinates on the Go heap.
type MmapIndex struct {
	path  string
	file  *os.File
	data  mmap.MMap
	maxID int64
	count int
}

// NewMmapIndex creates a sparse file at path large enough for ids below maxID
// and maps it read-write
func NewMmapIndex(path string, maxID int64) (*MmapIndex, error) {
	if maxID <= 0 {
		maxID = DefaultMaxNodeID
	}
	size := maxID * entrySize

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create mmap file: %w", err)
	}

	// Truncate to full size (creates sparse file on Linux)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to truncate file: %w", err)
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}

	return &MmapIndex{
		path:  path,
		file:  f,
		data:  data,
		maxID: maxID,
	}, nil
}

// Put stores a node's coordinates
func (m *MmapIndex) Put(id osm.NodeID, p orb.Point) error {
	n := int64(id)
	if n < 0 || n >= m.maxID {
		return fmt.Errorf("%w: %d (max %d)", ErrNodeIDRange, n, m.maxID)
	}

	offset := n * entrySize
	if binary.LittleEndian.Uint32(m.data[offset:]) == 0 {
		m.count++
	}
	binary.LittleEndian.PutUint32(m.data[offset:], encode(p.Lat(), 90))
	binary.LittleEndian.PutUint32(m.data[offset+4:], encode(p.Lon(), 180))
	return nil
}

// Get retrieves a node's coordinates
func (m *MmapIndex) Get(id osm.NodeID) (orb.Point, bool) {
	n := int64(id)
	if n < 0 || n >= m.maxID {
		return orb.Point{}, false
	}

	offset := n * entrySize
	lat := binary.LittleEndian.Uint32(m.data[offset:])
	lon := binary.LittleEndian.Uint32(m.data[offset+4:])
	if lat == 0 || lon == 0 {
		return orb.Point{}, false
	}
	return orb.Point{decode(lon, 180), decode(lat, 90)}, true
}

// Len returns the number of stored nodes
func (m *MmapIndex) Len() int {
	return m.count
}

// Sync flushes changes to disk
func (m *MmapIndex) Sync() error {
	return m.data.Flush()
}

// Close unmaps and removes the backing file
func (m *MmapIndex) Close() error {
	if m.data == nil {
		return nil
	}
	err := m.data.Unmap()
	m.data = nil
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	if rerr := os.Remove(m.path); err == nil && !os.IsNotExist(rerr) {
		err = rerr
	}
	return err
}

func encode(deg, offset float64) uint32 {
	return uint32(math.Round((deg+offset)*scale)) + 1
}

func decode(v uint32, offset float64) float64 {
	return float64(v-1)/scale - offset
}
