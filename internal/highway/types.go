// Package highway holds the entity payloads and diagnostics shared by the
// discovery, assembly and simplification stages.
package highway

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Tag keys read from the extract
const (
	TagHighway     = "highway"
	TagName        = "name"
	TagHighwayName = "highway:name"
	TagRef         = "ref"
	TagType        = "type"
	TagRoute       = "route"
)

// acceptedClasses are the highway=* values a candidate must carry.
// Link roads are included so ramps are retained.
var acceptedClasses = map[string]bool{
	"motorway":      true,
	"motorway_link": true,
	"trunk":         true,
	"trunk_link":    true,
}

// IsAcceptedClass reports whether a highway=* value is an expressway class
func IsAcceptedClass(class string) bool {
	return acceptedClasses[class]
}

// NameCandidates returns the non-empty tag values a pattern is tested
// against, in priority order: name, highway:name, ref.
func NameCandidates(tags osm.Tags) []string {
	out := make([]string, 0, 3)
	for _, key := range []string{TagName, TagHighwayName, TagRef} {
		if v := tags.Find(key); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsRoadRoute reports whether a relation is a road route (type=route, route=road)
func IsRoadRoute(tags osm.Tags) bool {
	t := tags.Find(TagType)
	return tags.Find(TagRoute) == "road" && (t == "" || t == "route")
}

// WayRecord is the minimal payload kept for a way between the two passes
type WayRecord struct {
	ID      osm.WayID
	NodeIDs []osm.NodeID
	Name    string
	Ref     string
	Highway string
}

// NewWayRecord copies the parts of a way needed downstream
func NewWayRecord(w *osm.Way) *WayRecord {
	ids := make([]osm.NodeID, len(w.Nodes))
	for i, n := range w.Nodes {
		ids[i] = n.ID
	}
	return &WayRecord{
		ID:      w.ID,
		NodeIDs: ids,
		Name:    w.Tags.Find(TagName),
		Ref:     w.Tags.Find(TagRef),
		Highway: w.Tags.Find(TagHighway),
	}
}

// Feature is one assembled polyline with the tags written to the output
type Feature struct {
	WayID   osm.WayID
	Name    string
	Ref     string
	Highway string
	Line    orb.LineString
}
