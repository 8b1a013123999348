package discover

import (
	"sort"

	"github.com/paulmach/osm"

	"github.com/routrace/mapgen/internal/catalog"
	"github.com/routrace/mapgen/internal/highway"
)

// Index is the result of the discovery pass: for each selected highway the
// set of way ids found for it, the raw name each way matched with, and the
// node-id payload of every retained way. It is read-only once returned.
type Index struct {
	targets  []catalog.Definition
	ways     map[string]map[osm.WayID]struct{}
	rawNames map[osm.WayID]string
	records  map[osm.WayID]*highway.WayRecord
}

func newIndex(targets []catalog.Definition) *Index {
	ix := &Index{
		targets:  targets,
		ways:     make(map[string]map[osm.WayID]struct{}, len(targets)),
		rawNames: make(map[osm.WayID]string),
		records:  make(map[osm.WayID]*highway.WayRecord),
	}
	for _, def := range targets {
		ix.ways[def.ID] = make(map[osm.WayID]struct{})
	}
	return ix
}

// add records a way under a highway. The first raw name recorded for a way
// is kept: own matches are added during the scan, before relation matches.
func (ix *Index) add(highwayID string, wayID osm.WayID, raw string) {
	ix.ways[highwayID][wayID] = struct{}{}
	if _, ok := ix.rawNames[wayID]; !ok {
		ix.rawNames[wayID] = raw
	}
}

// Targets returns the highways the index was built for, in catalog order
func (ix *Index) Targets() []catalog.Definition {
	return ix.targets
}

// WayIDs returns the sorted way ids discovered for a highway
func (ix *Index) WayIDs(highwayID string) []osm.WayID {
	set := ix.ways[highwayID]
	out := make([]osm.WayID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether a way was discovered for a highway
func (ix *Index) Contains(highwayID string, wayID osm.WayID) bool {
	_, ok := ix.ways[highwayID][wayID]
	return ok
}

// RawName returns the name a way was matched with
func (ix *Index) RawName(wayID osm.WayID) string {
	return ix.rawNames[wayID]
}

// Record returns the retained payload of a way
func (ix *Index) Record(wayID osm.WayID) (*highway.WayRecord, bool) {
	r, ok := ix.records[wayID]
	return r, ok
}

// Len returns the number of distinct ways discovered
func (ix *Index) Len() int {
	return len(ix.records)
}

// NodeIDs returns the set of node ids referenced by retained ways, the
// input of the node pass
func (ix *Index) NodeIDs() map[osm.NodeID]struct{} {
	out := make(map[osm.NodeID]struct{})
	for _, r := range ix.records {
		for _, id := range r.NodeIDs {
			out[id] = struct{}{}
		}
	}
	return out
}
