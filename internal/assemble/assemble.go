// Package assemble implements the second pass over the extract: resolving
// node coordinates for the discovered ways and building one polyline per way.
package assemble

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/routrace/mapgen/internal/discover"
	"github.com/routrace/mapgen/internal/extract"
	"github.com/routrace/mapgen/internal/highway"
	"github.com/routrace/mapgen/internal/logger"
	"github.com/routrace/mapgen/internal/nodeindex"
)

// LoadNodes scans the nodes of the extract and stores the coordinates of
// every node referenced by a discovered way
func LoadNodes(ctx context.Context, src extract.Source, ix *discover.Index, idx nodeindex.Index) error {
	log := logger.Named("assemble")
	start := time.Now()

	needed := ix.NodeIDs()
	opts := extract.PassOptions{
		SkipWays:      true,
		SkipRelations: true,
		FilterNode: func(n *osm.Node) bool {
			_, ok := needed[n.ID]
			return ok
		},
	}

	counts, err := extract.Run(ctx, src, "nodes", opts, func(obj osm.Object) error {
		n, ok := obj.(*osm.Node)
		if !ok {
			return nil
		}
		return idx.Put(n.ID, n.Point())
	})
	if err != nil {
		return fmt.Errorf("node pass failed: %w", err)
	}

	log.Info("Node pass complete",
		zap.Int("needed", len(needed)),
		zap.Int64("stored", counts.Nodes),
		zap.Int("missing", len(needed)-idx.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Assembler builds features from retained way payloads and a loaded node
// index. It is safe for concurrent use once the index is loaded.
type Assembler struct {
	ix    *discover.Index
	nodes nodeindex.Index
	diags *highway.Diagnostics
}

// New creates an assembler
func New(ix *discover.Index, nodes nodeindex.Index, diags *highway.Diagnostics) *Assembler {
	if diags == nil {
		diags = highway.NewDiagnostics()
	}
	return &Assembler{ix: ix, nodes: nodes, diags: diags}
}

// Way builds the polyline of one way in its declared node order. Nodes
// missing from the index are skipped and the way flagged; a way left with
// fewer than 2 coordinates yields no feature.
func (a *Assembler) Way(highwayID string, wayID osm.WayID) (highway.Feature, bool) {
	rec, ok := a.ix.Record(wayID)
	if !ok {
		a.diags.Add(highway.Diagnostic{
			Kind:      highway.DegenerateGeometry,
			HighwayID: highwayID,
			WayID:     wayID,
			Detail:    "no retained payload",
		})
		return highway.Feature{}, false
	}

	line := make(orb.LineString, 0, len(rec.NodeIDs))
	missing := 0
	for _, id := range rec.NodeIDs {
		p, ok := a.nodes.Get(id)
		if !ok {
			missing++
			continue
		}
		line = append(line, p)
	}

	if missing > 0 {
		a.diags.Add(highway.Diagnostic{
			Kind:      highway.DanglingNodeReference,
			HighwayID: highwayID,
			WayID:     wayID,
			Detail:    fmt.Sprintf("%d of %d nodes missing from the extract", missing, len(rec.NodeIDs)),
		})
	}

	if len(line) < 2 {
		a.diags.Add(highway.Diagnostic{
			Kind:      highway.DegenerateGeometry,
			HighwayID: highwayID,
			WayID:     wayID,
			Detail:    fmt.Sprintf("%d resolvable coordinates, way dropped", len(line)),
		})
		return highway.Feature{}, false
	}

	// unnamed relation members carry the relation's name
	name := rec.Name
	if name == "" {
		name = a.ix.RawName(wayID)
	}

	return highway.Feature{
		WayID:   wayID,
		Name:    name,
		Ref:     rec.Ref,
		Highway: rec.Highway,
		Line:    line,
	}, true
}

// Highway assembles the given ways, which must be sorted by id, into
// features in the same order
func (a *Assembler) Highway(highwayID string, wayIDs []osm.WayID) []highway.Feature {
	features := make([]highway.Feature, 0, len(wayIDs))
	for _, id := range wayIDs {
		if f, ok := a.Way(highwayID, id); ok {
			features = append(features, f)
		}
	}
	return features
}
