package coastline

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/routrace/mapgen/internal/feature"
)

const outline = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"nam": "Tokyo To"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[139.0, 35.0], [139.0001, 35.00001], [139.0002, 35.0], [139.5, 35.5], [139.0, 35.0]]],
       [[[139.8, 34.0], [139.9, 34.0], [139.9, 34.1], [139.8, 34.0]]]
     ]}},
    {"type": "Feature", "properties": {"nam": "Line"},
     "geometry": {"type": "LineString", "coordinates": [[130.0, 31.0], [130.5, 31.0000001], [131.0, 31.0]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Point", "coordinates": [135.0, 35.0]}}
  ]
}`

func TestFlatten(t *testing.T) {
	fc, err := Load(strings.NewReader(outline))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	lines := Flatten(fc)
	if len(lines) != 3 {
		t.Fatalf("Flatten() = %d lines, want 3", len(lines))
	}
	if len(lines[0]) != 5 || len(lines[1]) != 4 || len(lines[2]) != 3 {
		t.Errorf("line sizes = %d %d %d", len(lines[0]), len(lines[1]), len(lines[2]))
	}
}

func TestBuild(t *testing.T) {
	fc, err := Load(strings.NewReader(outline))
	if err != nil {
		t.Fatal(err)
	}

	info := feature.CoastlineInfo{Name: Name, Source: Source, Tolerance: 0.001}
	doc, stats := Build(fc, info, feature.DefaultPrecision)

	if stats.Features != 3 || stats.Lines != 3 || stats.Before != 12 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.After >= stats.Before {
		t.Errorf("simplification removed nothing: %+v", stats)
	}

	if len(doc.Features) != 1 {
		t.Fatalf("coastline has %d features, want 1", len(doc.Features))
	}
	mls, ok := doc.Features[0].Geometry.(orb.MultiLineString)
	if !ok {
		t.Fatalf("geometry = %T, want MultiLineString", doc.Features[0].Geometry)
	}
	// straight line collapses to its endpoints
	if len(mls[2]) != 2 || mls[2][0] != (orb.Point{130, 31}) || mls[2][1] != (orb.Point{131, 31}) {
		t.Errorf("line part = %v", mls[2])
	}
	// rings stay closed
	for i, ls := range mls[:2] {
		if ls[0] != ls[len(ls)-1] {
			t.Errorf("ring %d no longer closed: %v", i, ls)
		}
	}

	props, _ := doc.ExtraMembers["properties"].(map[string]any)
	if props["simplified"] != true || props["tolerance"] != 0.001 || props["name"] != Name {
		t.Errorf("properties = %v", props)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load(strings.NewReader("not json")); err == nil {
		t.Error("Load() should reject invalid JSON")
	}
}
