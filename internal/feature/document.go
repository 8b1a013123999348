// Package feature builds the documents written under data/: one feature
// collection per highway, the coastline, the highway index and the metadata.
package feature

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/routrace/mapgen/internal/catalog"
	"github.com/routrace/mapgen/internal/highway"
)

// DefaultPrecision is the number of decimals kept in coordinates
const DefaultPrecision = 6

// TimeLayout is the UTC timestamp format used in documents
const TimeLayout = "2006-01-02T15:04:05Z"

// Document is an encoded file ready to be written
type Document struct {
	Path string // relative to the output directory
	Data []byte
}

// Size returns the number of bytes that will be written
func (d Document) Size() int {
	return len(d.Data)
}

// Encode marshals v as compact JSON. The result is exactly what is written
// to disk.
func Encode(path string, v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return Document{Path: path, Data: data}, nil
}

// Round returns a copy of g with coordinates rounded to precision decimals.
// A negative precision leaves coordinates untouched.
func Round(g orb.Geometry, precision int) orb.Geometry {
	g = orb.Clone(g)
	if precision < 0 {
		return g
	}
	return orb.Round(g, int(math.Pow10(precision)))
}

// Highway builds the feature collection of one highway. Features keep the
// order they are given in.
func Highway(def catalog.Definition, features []highway.Feature, precision int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"properties": map[string]any{
			"id":     def.ID,
			"name":   def.Name,
			"nameEn": def.NameEn,
		},
	}

	for _, f := range features {
		gf := geojson.NewFeature(Round(f.Line, precision))
		gf.Properties = geojson.Properties{
			"name":    f.Name,
			"ref":     f.Ref,
			"highway": f.Highway,
		}
		fc.Append(gf)
	}
	return fc
}

// CoastlineInfo describes the coastline source
type CoastlineInfo struct {
	Name      string
	Source    string
	Tolerance float64
}

// Coastline builds the coastline document: a single MultiLineString feature
func Coastline(lines orb.MultiLineString, info CoastlineInfo, precision int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"properties": map[string]any{
			"name":       info.Name,
			"source":     info.Source,
			"simplified": true,
			"tolerance":  info.Tolerance,
		},
	}

	gf := geojson.NewFeature(Round(lines, precision))
	gf.Properties = geojson.Properties{"name": info.Name}
	fc.Append(gf)
	return fc
}

// Metadata is data/metadata.json
type Metadata struct {
	Version     string `json:"version"`
	GeneratedAt string `json:"generatedAt"`
	Source      string `json:"source"`
	License     string `json:"license"`
	Attribution string `json:"attribution"`
}

// NewMetadata returns the metadata document for a run at ts
func NewMetadata(ts time.Time) Metadata {
	return Metadata{
		Version:     "1.0.0",
		GeneratedAt: ts.UTC().Format(TimeLayout),
		Source:      "OpenStreetMap",
		License:     "ODbL",
		Attribution: "© OpenStreetMap contributors",
	}
}
