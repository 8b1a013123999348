package feature

import (
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/routrace/mapgen/internal/highway"
)

// RefDisplay returns the first part of a compound ref such as "E1;E1A"
func RefDisplay(ref string) string {
	first, _, _ := strings.Cut(ref, ";")
	return strings.TrimSpace(first)
}

// GroupByRef groups features by the first part of their ref. Features
// without a ref join the group whose geometry is nearest to their centroid.
// When no feature has a ref everything is grouped under "".
func GroupByRef(features []highway.Feature) map[string][]highway.Feature {
	groups := make(map[string][]highway.Feature)
	var unnamed []highway.Feature
	for _, f := range features {
		ref := RefDisplay(f.Ref)
		if ref == "" {
			unnamed = append(unnamed, f)
			continue
		}
		groups[ref] = append(groups[ref], f)
	}

	if len(groups) == 0 {
		if len(unnamed) > 0 {
			groups[""] = unnamed
		}
		return groups
	}

	refs := sortedKeys(groups)
	targets := make([]string, len(unnamed))
	for i, f := range unnamed {
		c, _ := planar.CentroidArea(f.Line)
		best, bestDist := refs[0], math.Inf(1)
		for _, ref := range refs {
			if d := nearest(c, groups[ref]); d < bestDist {
				best, bestDist = ref, d
			}
		}
		targets[i] = best
	}
	for i, f := range unnamed {
		groups[targets[i]] = append(groups[targets[i]], f)
	}
	return groups
}

// nearest returns the squared distance from p to the closest coordinate of
// the features
func nearest(p orb.Point, features []highway.Feature) float64 {
	best := math.Inf(1)
	for _, f := range features {
		for _, q := range f.Line {
			if d := planar.DistanceSquared(p, q); d < best {
				best = d
			}
		}
	}
	return best
}

// ShouldSplitByRef reports whether the groups hold more than one real ref
func ShouldSplitByRef(groups map[string][]highway.Feature) bool {
	n := 0
	for ref := range groups {
		if ref != "" {
			n++
		}
	}
	return n >= 2
}

// PrimaryRef returns the most common ref tag of the features, ties broken
// by the smaller value
func PrimaryRef(features []highway.Feature) string {
	counts := make(map[string]int)
	for _, f := range features {
		if f.Ref != "" {
			counts[f.Ref]++
		}
	}
	best, bestCount := "", 0
	for _, ref := range sortedKeys(counts) {
		if counts[ref] > bestCount {
			best, bestCount = ref, counts[ref]
		}
	}
	return best
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
