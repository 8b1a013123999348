// Package discover implements the first pass over the extract: finding the
// ways and relations that belong to each selected highway.
package discover

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/routrace/mapgen/internal/catalog"
	"github.com/routrace/mapgen/internal/extract"
	"github.com/routrace/mapgen/internal/highway"
	"github.com/routrace/mapgen/internal/logger"
)

// relationMatch is a relation whose names matched a highway
type relationMatch struct {
	highwayID string
	raw       string
}

// Discoverer scans relations and ways once and builds an Index
type Discoverer struct {
	targets []catalog.Definition
	diags   *highway.Diagnostics
	log     *zap.Logger

	// scan state, discarded when Run returns
	records   map[osm.WayID]*highway.WayRecord
	members   map[osm.RelationID]osm.Members
	relations map[osm.RelationID][]relationMatch
	ix        *Index
}

// New creates a discoverer for the selected highways, in catalog order
func New(targets []catalog.Definition, diags *highway.Diagnostics) *Discoverer {
	if diags == nil {
		diags = highway.NewDiagnostics()
	}
	return &Discoverer{
		targets: targets,
		diags:   diags,
		log:     logger.Named("discover"),
	}
}

// Run performs the discovery pass. Only a failing scan is returned as an
// error; everything else ends up in the diagnostics.
func (d *Discoverer) Run(ctx context.Context, src extract.Source) (*Index, error) {
	start := time.Now()
	d.records = make(map[osm.WayID]*highway.WayRecord)
	d.members = make(map[osm.RelationID]osm.Members)
	d.relations = make(map[osm.RelationID][]relationMatch)
	d.ix = newIndex(d.targets)
	defer func() {
		d.records, d.members, d.relations, d.ix = nil, nil, nil, nil
	}()

	opts := extract.PassOptions{
		SkipNodes: true,
		FilterWay: func(w *osm.Way) bool {
			return highway.IsAcceptedClass(w.Tags.Find(highway.TagHighway))
		},
		FilterRelation: func(r *osm.Relation) bool {
			return isRoadRelation(r.Tags)
		},
	}

	counts, err := extract.Run(ctx, src, "discover", opts, func(obj osm.Object) error {
		switch v := obj.(type) {
		case *osm.Way:
			d.way(v)
		case *osm.Relation:
			d.relation(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovery pass failed: %w", err)
	}

	members, err := d.resolveMembers(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("member pass failed: %w", err)
	}

	d.expandRelations()
	ix := d.finalize()

	d.log.Info("Discovery complete",
		zap.Int64("ways_scanned", counts.Ways),
		zap.Int64("relations_scanned", counts.Relations),
		zap.Int("matched_relations", len(d.relations)),
		zap.Int("members_resolved", members),
		zap.Int("ways_retained", len(ix.records)),
		zap.Duration("elapsed", time.Since(start)))
	return ix, nil
}

// isRoadRelation reports whether a relation's members are worth keeping,
// either to match it directly or to reach it as a child of a matched route
func isRoadRelation(tags osm.Tags) bool {
	return tags.Find(highway.TagRoute) == "road" || highway.IsAcceptedClass(tags.Find(highway.TagHighway))
}

func (d *Discoverer) way(w *osm.Way) {
	if !highway.IsAcceptedClass(w.Tags.Find(highway.TagHighway)) {
		return
	}
	d.records[w.ID] = highway.NewWayRecord(w)

	names := highway.NameCandidates(w.Tags)
	if len(names) == 0 {
		return
	}
	for _, def := range d.targets {
		if raw, ok := def.MatchAny(names); ok {
			d.ix.add(def.ID, w.ID, raw)
		}
	}
}

func (d *Discoverer) relation(r *osm.Relation) {
	if !isRoadRelation(r.Tags) {
		return
	}
	d.members[r.ID] = append(osm.Members(nil), r.Members...)

	if !highway.IsRoadRoute(r.Tags) && !highway.IsAcceptedClass(r.Tags.Find(highway.TagHighway)) {
		return
	}
	names := highway.NameCandidates(r.Tags)
	if len(names) == 0 {
		return
	}
	for _, def := range d.targets {
		if raw, ok := def.MatchAny(names); ok {
			d.relations[r.ID] = append(d.relations[r.ID], relationMatch{highwayID: def.ID, raw: raw})
		}
	}
}

// resolveMembers rescans the ways for members of matched relations that the
// first pass dropped because of their class. Relations follow ways in the
// extract, so membership is only known after the first pass.
func (d *Discoverer) resolveMembers(ctx context.Context, src extract.Source) (int, error) {
	missing := make(map[osm.WayID]bool)
	for id := range d.relations {
		for _, wayID := range d.memberWays(id) {
			if _, ok := d.records[wayID]; !ok {
				missing[wayID] = true
			}
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	opts := extract.PassOptions{
		SkipNodes:     true,
		SkipRelations: true,
		FilterWay: func(w *osm.Way) bool {
			return missing[w.ID]
		},
	}
	found := 0
	_, err := extract.Run(ctx, src, "members", opts, func(obj osm.Object) error {
		if w, ok := obj.(*osm.Way); ok && missing[w.ID] {
			d.records[w.ID] = highway.NewWayRecord(w)
			found++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	d.log.Debug("Relation members resolved",
		zap.Int("missing", len(missing)),
		zap.Int("found", found))
	return found, nil
}

// expandRelations pulls the member ways of every matched relation into the
// index, following child relations, whatever the members' own tags. Relations are processed in id order so
// relation-derived raw names do not depend on scan order.
func (d *Discoverer) expandRelations() {
	ids := make([]osm.RelationID, 0, len(d.relations))
	for id := range d.relations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		ways := d.memberWays(id)
		for _, m := range d.relations[id] {
			for _, wayID := range ways {
				if _, ok := d.records[wayID]; !ok {
					d.diags.Add(highway.Diagnostic{
						Kind:      highway.UnresolvedMember,
						HighwayID: m.highwayID,
						WayID:     wayID,
						Detail:    fmt.Sprintf("member of relation %d is not in the extract", id),
					})
					continue
				}
				d.ix.add(m.highwayID, wayID, m.raw)
			}
		}
	}
}

// memberWays returns the way members of a relation and all its descendant
// relations, in member order, without duplicates
func (d *Discoverer) memberWays(root osm.RelationID) []osm.WayID {
	var out []osm.WayID
	seenWays := make(map[osm.WayID]bool)
	visited := map[osm.RelationID]bool{root: true}

	queue := []osm.RelationID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, m := range d.members[id] {
			switch m.Type {
			case osm.TypeWay:
				wayID := osm.WayID(m.Ref)
				if !seenWays[wayID] {
					seenWays[wayID] = true
					out = append(out, wayID)
				}
			case osm.TypeRelation:
				child := osm.RelationID(m.Ref)
				if !visited[child] {
					visited[child] = true
					queue = append(queue, child)
				}
			}
		}
	}
	return out
}

// finalize keeps only the records some highway selected and reports empty
// highways
func (d *Discoverer) finalize() *Index {
	ix := d.ix
	for wayID := range ix.rawNames {
		ix.records[wayID] = d.records[wayID]
	}

	for _, def := range d.targets {
		n := len(ix.ways[def.ID])
		if n == 0 {
			d.diags.Add(highway.Diagnostic{
				Kind:      highway.NoCandidatesFound,
				HighwayID: def.ID,
				Detail:    fmt.Sprintf("no ways or relations match %q", def.Query),
			})
			d.log.Warn("No candidates found", zap.String("highway", def.ID), zap.String("query", def.Query))
			continue
		}
		d.log.Debug("Highway discovered", zap.String("highway", def.ID), zap.Int("ways", n))
	}
	return ix
}
