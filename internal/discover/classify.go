package discover

import (
	"sort"

	"github.com/paulmach/osm"

	"github.com/routrace/mapgen/internal/group"
)

// Classification assigns every discovered way to exactly one highway id
type Classification struct {
	ways   map[string][]osm.WayID
	owner  map[osm.WayID]string
	groups map[osm.WayID]string
}

// Classify resolves each way's raw name to its group. A way whose group is
// the display name of a selected highway goes to that highway; any other way
// stays with the first highway, in catalog order, that discovered it.
func Classify(ix *Index, resolver *group.Resolver) *Classification {
	byName := make(map[string]string, len(ix.targets))
	for _, def := range ix.targets {
		if _, ok := byName[def.Name]; !ok {
			byName[def.Name] = def.ID
		}
	}

	c := &Classification{
		ways:   make(map[string][]osm.WayID, len(ix.targets)),
		owner:  make(map[osm.WayID]string, len(ix.rawNames)),
		groups: make(map[osm.WayID]string, len(ix.rawNames)),
	}
	for _, def := range ix.targets {
		c.ways[def.ID] = nil
	}

	ids := make([]osm.WayID, 0, len(ix.rawNames))
	for id := range ix.rawNames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, wayID := range ids {
		g := resolver.Resolve(ix.rawNames[wayID])
		owner, ok := byName[g]
		if !ok {
			owner = firstDiscoverer(ix, wayID)
		}
		c.owner[wayID] = owner
		c.groups[wayID] = g
		c.ways[owner] = append(c.ways[owner], wayID)
	}
	return c
}

func firstDiscoverer(ix *Index, wayID osm.WayID) string {
	for _, def := range ix.targets {
		if ix.Contains(def.ID, wayID) {
			return def.ID
		}
	}
	return ""
}

// WayIDs returns the ways assigned to a highway, sorted by id
func (c *Classification) WayIDs(highwayID string) []osm.WayID {
	return c.ways[highwayID]
}

// Owner returns the highway a way was assigned to
func (c *Classification) Owner(wayID osm.WayID) (string, bool) {
	id, ok := c.owner[wayID]
	return id, ok
}

// Group returns the canonical group a way's raw name resolved to
func (c *Classification) Group(wayID osm.WayID) string {
	return c.groups[wayID]
}

// Len returns the number of classified ways
func (c *Classification) Len() int {
	return len(c.owner)
}
