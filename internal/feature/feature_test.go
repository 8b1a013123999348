package feature

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/routrace/mapgen/internal/catalog"
	"github.com/routrace/mapgen/internal/group"
	"github.com/routrace/mapgen/internal/highway"
)

var tomei = catalog.Definition{
	ID: "tomei", Name: "東名高速道路", NameEn: "Tomei Expressway",
	Query: "東名高速", Match: catalog.MatchPrefix, Color: "#1e88e5",
}

func TestHighwayDocument(t *testing.T) {
	line := orb.LineString{{139.12345678, 35.1}, {139.2, 35.2}}
	features := []highway.Feature{
		{WayID: 1, Name: "東名高速道路", Ref: "E1", Highway: "motorway", Line: line},
	}

	doc, err := Encode("data/highways/tomei.json", Highway(tomei, features, DefaultPrecision))
	if err != nil {
		t.Fatal(err)
	}

	want := `{"features":[{"type":"Feature","geometry":{"type":"LineString","coordinates":[[139.123457,35.1],[139.2,35.2]]},` +
		`"properties":{"highway":"motorway","name":"東名高速道路","ref":"E1"}}],` +
		`"properties":{"id":"tomei","name":"東名高速道路","nameEn":"Tomei Expressway"},"type":"FeatureCollection"}`
	if string(doc.Data) != want {
		t.Errorf("document =\n%s\nwant\n%s", doc.Data, want)
	}
	if doc.Size() != len(want) {
		t.Errorf("Size() = %d, want %d", doc.Size(), len(want))
	}
	if line[0][0] != 139.12345678 {
		t.Error("rounding modified the input line")
	}
}

func TestEmptyHighwayDocument(t *testing.T) {
	doc, err := Encode("x", Highway(tomei, nil, DefaultPrecision))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc.Data), `"features":[]`) {
		t.Errorf("empty document = %s, want an empty features array", doc.Data)
	}

	fc, err := geojson.UnmarshalFeatureCollection(doc.Data)
	if err != nil {
		t.Fatalf("document is not valid GeoJSON: %v", err)
	}
	if fc.ExtraMembers["properties"] == nil {
		t.Error("properties block missing")
	}
}

func TestCoastlineDocument(t *testing.T) {
	mls := orb.MultiLineString{
		{{130.0, 31.0}, {131.0, 32.0}},
		{{140.0, 41.0}, {141.0, 42.0}, {140.0, 41.0}},
	}
	info := CoastlineInfo{Name: "Japan Coastline", Source: "dataofjapan/land", Tolerance: 0.001}

	doc, err := Encode("data/coastline.json", Coastline(mls, info, DefaultPrecision))
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Properties map[string]any `json:"properties"`
		Features   []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(doc.Data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Features) != 1 || decoded.Features[0].Geometry.Type != "MultiLineString" {
		t.Errorf("features = %+v", decoded.Features)
	}
	if decoded.Properties["simplified"] != true || decoded.Properties["tolerance"] != 0.001 {
		t.Errorf("properties = %v", decoded.Properties)
	}
	if decoded.Properties["source"] != "dataofjapan/land" {
		t.Errorf("source = %v", decoded.Properties["source"])
	}
}

func TestRound(t *testing.T) {
	ls := orb.LineString{{1.23456789, 9.87654321}}
	if got := Round(ls, 2).(orb.LineString); got[0] != (orb.Point{1.23, 9.88}) {
		t.Errorf("Round(2) = %v", got)
	}
	if got := Round(ls, -1).(orb.LineString); got[0] != ls[0] {
		t.Errorf("Round(-1) = %v", got)
	}
}

func TestIndex(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	resolver := cat.Resolver()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*3600))

	shutoko, _ := cat.Lookup("shutoko")
	features := []highway.Feature{
		{Ref: "C1"}, {Ref: "C2;E20"}, {Ref: "C2;E20"}, {Ref: ""},
	}

	entries := []IndexEntry{
		NewIndexEntry(shutoko, features, resolver, 1234, ts),
		NewIndexEntry(tomei, nil, resolver, 99, ts),
		{ID: "unknown"},
	}
	idx := BuildIndex(cat, entries)

	if len(idx.Highways) != 2 || idx.Highways[0].ID != "tomei" || idx.Highways[1].ID != "shutoko" {
		t.Fatalf("index order = %+v, want catalog order", idx.Highways)
	}

	e := idx.Highways[1]
	if e.Ref != "C2;E20" || e.RefDisplay != "C2" {
		t.Errorf("ref = %q display %q", e.Ref, e.RefDisplay)
	}
	if e.Group != "首都高速道路" {
		t.Errorf("group = %q", e.Group)
	}
	if e.UpdatedAt != "2024-05-01T03:00:00Z" || e.FileSize != 1234 || e.Color != "#546e7a" {
		t.Errorf("entry = %+v", e)
	}
	if idx.Highways[0].Group != "" {
		t.Errorf("tomei group = %q, want none", idx.Highways[0].Group)
	}

	doc, err := Encode("data/highways/index.json", idx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(doc.Data), `"group":""`) {
		t.Error("empty group should be omitted")
	}

	nexco := group.NewResolver([]group.Rule{{Prefix: "東名高速", Group: "NEXCO中日本"}})
	if e := NewIndexEntry(tomei, nil, nexco, 1, ts); e.Group != "NEXCO中日本" {
		t.Errorf("group with explicit rule = %q", e.Group)
	}
	if e := NewIndexEntry(tomei, nil, nil, 1, ts); e.Group != "" {
		t.Errorf("group without resolver = %q, want none", e.Group)
	}
}

func TestMetadata(t *testing.T) {
	m := NewMetadata(time.Unix(1700000000, 0))
	doc, err := Encode("data/metadata.json", m)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"version":"1.0.0","generatedAt":"2023-11-14T22:13:20Z","source":"OpenStreetMap","license":"ODbL","attribution":"© OpenStreetMap contributors"}`
	if string(doc.Data) != want {
		t.Errorf("metadata = %s", doc.Data)
	}
}

func TestGroupByRef(t *testing.T) {
	f := func(ref string, coords ...float64) highway.Feature {
		var ls orb.LineString
		for i := 0; i+1 < len(coords); i += 2 {
			ls = append(ls, orb.Point{coords[i], coords[i+1]})
		}
		return highway.Feature{Ref: ref, Line: ls}
	}

	tests := []struct {
		name     string
		features []highway.Feature
		want     map[string]int
		split    bool
	}{
		{
			name:     "single ref",
			features: []highway.Feature{f("E8", 0, 0, 1, 1), f("E8", 1, 1, 2, 2)},
			want:     map[string]int{"E8": 2},
		},
		{
			name:     "multiple refs",
			features: []highway.Feature{f("E19", 0, 0, 1, 1), f("E20", 10, 10, 11, 11)},
			want:     map[string]int{"E19": 1, "E20": 1},
			split:    true,
		},
		{
			name: "ref-less merged into nearest",
			features: []highway.Feature{
				f("E19", 0, 0, 1, 1),
				f("E20", 100, 100, 101, 101),
				f("", 0.5, 0.5, 1.5, 1.5),
			},
			want:  map[string]int{"E19": 2, "E20": 1},
			split: true,
		},
		{
			name:     "compound ref uses first part",
			features: []highway.Feature{f("E4;E13", 0, 0, 1, 1), f("E4", 1, 1, 2, 2)},
			want:     map[string]int{"E4": 2},
		},
		{
			name:     "no refs",
			features: []highway.Feature{f("", 0, 0, 1, 1), f("", 1, 1, 2, 2)},
			want:     map[string]int{"": 2},
		},
		{
			name: "empty",
			want: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupByRef(tt.features)
			if len(got) != len(tt.want) {
				t.Fatalf("GroupByRef() = %d groups, want %d", len(got), len(tt.want))
			}
			for ref, n := range tt.want {
				if len(got[ref]) != n {
					t.Errorf("group %q has %d features, want %d", ref, len(got[ref]), n)
				}
			}
			if split := ShouldSplitByRef(got); split != tt.split {
				t.Errorf("ShouldSplitByRef() = %v, want %v", split, tt.split)
			}
		})
	}
}

func TestShouldSplitByRef(t *testing.T) {
	tests := []struct {
		refs []string
		want bool
	}{
		{[]string{"E19", "E20"}, true},
		{[]string{"E8"}, false},
		{[]string{""}, false},
		{[]string{"E8", ""}, false},
		{[]string{"E1", "E2", "E3"}, true},
	}
	for _, tt := range tests {
		groups := make(map[string][]highway.Feature)
		for _, r := range tt.refs {
			groups[r] = nil
		}
		if got := ShouldSplitByRef(groups); got != tt.want {
			t.Errorf("ShouldSplitByRef(%v) = %v, want %v", tt.refs, got, tt.want)
		}
	}
}
