package simplify

import (
	"sort"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

type segment struct {
	i     int
	bound orb.Bound
}

// crossings counts pairs of non-adjacent segments of ls that properly cross.
// Touching at a shared vertex is not a crossing. Counting stops at limit
// when limit > 0.
func crossings(ls orb.LineString, limit int) int {
	nseg := len(ls) - 1
	if nseg < 3 {
		return 0
	}

	pts := make([]s2.Point, len(ls))
	for i, p := range ls {
		pts[i] = s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
	}

	segs := make([]segment, nseg)
	for i := range segs {
		segs[i] = segment{i: i, bound: orb.LineString{ls[i], ls[i+1]}.Bound()}
	}
	sort.Slice(segs, func(a, b int) bool {
		if segs[a].bound.Min[0] != segs[b].bound.Min[0] {
			return segs[a].bound.Min[0] < segs[b].bound.Min[0]
		}
		return segs[a].i < segs[b].i
	})

	closed := ls[0] == ls[nseg]
	count := 0

	// sweep along x, testing each segment against those still overlapping it
	var active []segment
	for _, s := range segs {
		kept := active[:0]
		for _, a := range active {
			if a.bound.Max[0] >= s.bound.Min[0] {
				kept = append(kept, a)
			}
		}
		active = kept

		for _, a := range active {
			i, j := a.i, s.i
			if i > j {
				i, j = j, i
			}
			if j-i < 2 || (closed && i == 0 && j == nseg-1) {
				continue
			}
			if a.bound.Max[1] < s.bound.Min[1] || s.bound.Max[1] < a.bound.Min[1] {
				continue
			}
			if s2.CrossingSign(pts[i], pts[i+1], pts[j], pts[j+1]) == s2.Cross {
				count++
				if limit > 0 && count >= limit {
					return count
				}
			}
		}
		active = append(active, s)
	}
	return count
}
