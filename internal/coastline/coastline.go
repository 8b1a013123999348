// Package coastline turns a country outline GeoJSON into the simplified
// coastline document.
package coastline

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/routrace/mapgen/internal/feature"
	"github.com/routrace/mapgen/internal/logger"
	"github.com/routrace/mapgen/internal/simplify"
)

// Name and Source describe the default coastline data set
const (
	Name   = "Japan Coastline"
	Source = "dataofjapan/land"
)

// Stats reports what simplification did to the coastline
type Stats struct {
	Features  int
	Lines     int
	Before    int
	After     int
	Fallbacks int
}

// Load decodes a GeoJSON feature collection
func Load(r io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read coastline: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse coastline GeoJSON: %w", err)
	}
	return fc, nil
}

// Flatten collects every line and polygon ring of the collection into one
// MultiLineString, in feature order. Point geometries are ignored.
func Flatten(fc *geojson.FeatureCollection) orb.MultiLineString {
	var out orb.MultiLineString
	for _, f := range fc.Features {
		out = appendLines(out, f.Geometry)
	}
	return out
}

func appendLines(out orb.MultiLineString, g orb.Geometry) orb.MultiLineString {
	switch g := g.(type) {
	case orb.LineString:
		out = append(out, g)
	case orb.MultiLineString:
		out = append(out, g...)
	case orb.Ring:
		out = append(out, orb.LineString(g))
	case orb.Polygon:
		for _, r := range g {
			out = append(out, orb.LineString(r))
		}
	case orb.MultiPolygon:
		for _, p := range g {
			out = appendLines(out, p)
		}
	case orb.Collection:
		for _, c := range g {
			out = appendLines(out, c)
		}
	}
	return out
}

// Build simplifies the outline and returns the coastline document
func Build(fc *geojson.FeatureCollection, info feature.CoastlineInfo, precision int) (*geojson.FeatureCollection, Stats) {
	log := logger.Named("coastline")

	lines := Flatten(fc)
	stats := Stats{
		Features: len(fc.Features),
		Lines:    len(lines),
		Before:   simplify.CountCoordinates(lines),
	}
	if stats.Features == 0 {
		log.Warn("Coastline source has no features")
	}

	simplified, fallbacks := simplify.MultiLineString(lines, info.Tolerance)
	stats.After = simplify.CountCoordinates(simplified)
	stats.Fallbacks = fallbacks

	log.Info("Coastline simplified",
		zap.Int("features", stats.Features),
		zap.Int("lines", stats.Lines),
		zap.Int("coords_before", stats.Before),
		zap.Int("coords_after", stats.After),
		zap.Int("fallbacks", stats.Fallbacks))

	return feature.Coastline(simplified, info, precision), stats
}
