// Package nodeindex stores node coordinates collected during the node pass
// so ways can be assembled without holding the whole extract in memory.
package nodeindex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Index maps node ids to coordinates. Put is called from a single goroutine
// during the node pass; Get may be called concurrently once loading is done.
type Index interface {
	Put(id osm.NodeID, p orb.Point) error
	Get(id osm.NodeID) (orb.Point, bool)
	Len() int
	Close() error
}

// MapIndex is a hash map index, sized for the subset of nodes the selected
// highways reference
type MapIndex struct {
	points map[osm.NodeID]orb.Point
}

// NewMapIndex creates a map index with room for sizeHint nodes
func NewMapIndex(sizeHint int) *MapIndex {
	return &MapIndex{points: make(map[osm.NodeID]orb.Point, sizeHint)}
}

// Put stores a node's coordinates
func (m *MapIndex) Put(id osm.NodeID, p orb.Point) error {
	m.points[id] = p
	return nil
}

// Get retrieves a node's coordinates
func (m *MapIndex) Get(id osm.NodeID) (orb.Point, bool) {
	p, ok := m.points[id]
	return p, ok
}

// Len returns the number of stored nodes
func (m *MapIndex) Len() int {
	return len(m.points)
}

// Close releases the map
func (m *MapIndex) Close() error {
	m.points = nil
	return nil
}

// Kinds accepted by New
const (
	KindMemory = "mem"
	KindMmap   = "mmap"
)

// New creates an index of the given kind. The mmap index is backed by a
// file in dir which is removed on Close.
func New(kind, dir string, sizeHint int, maxID int64) (Index, error) {
	switch kind {
	case "", KindMemory:
		return NewMapIndex(sizeHint), nil
	case KindMmap:
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create node index directory: %w", err)
		}
		idx, err := NewMmapIndex(filepath.Join(dir, "nodes.idx"), maxID)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
	return nil, fmt.Errorf("unknown node index kind: %s", kind)
}
