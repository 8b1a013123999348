// Package simplify reduces coordinate density with Douglas-Peucker while
// refusing results that introduce self-crossings.
package simplify

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// DefaultTolerance is about 100 m at Japan's latitude
const DefaultTolerance = 0.001

// Result is the outcome of simplifying one line
type Result struct {
	Line     orb.LineString
	Before   int
	After    int
	Fallback bool // the input was kept because simplification broke it
}

// LineString simplifies a copy of ls. A tolerance <= 0 returns an unchanged
// copy. The input is never modified.
func LineString(ls orb.LineString, tolerance float64) Result {
	res := Result{Before: len(ls)}
	if tolerance <= 0 || len(ls) <= 2 {
		res.Line = ls.Clone()
		res.After = len(res.Line)
		return res
	}

	out := simplify.DouglasPeucker(tolerance).LineString(ls.Clone())
	if breaksTopology(ls, out) {
		out = ls.Clone()
		res.Fallback = true
	}

	res.Line = out
	res.After = len(out)
	return res
}

// Simplify returns the simplified coordinates of ls
func Simplify(ls orb.LineString, tolerance float64) orb.LineString {
	return LineString(ls, tolerance).Line
}

// MultiLineString simplifies every part independently under the same rule.
// Crossings between different parts are not checked.
func MultiLineString(mls orb.MultiLineString, tolerance float64) (orb.MultiLineString, int) {
	out := make(orb.MultiLineString, len(mls))
	fallbacks := 0
	for i, ls := range mls {
		res := LineString(ls, tolerance)
		out[i] = res.Line
		if res.Fallback {
			fallbacks++
		}
	}
	return out, fallbacks
}

// breaksTopology reports whether the simplified line is invalid where the
// original was not: a closed line that collapsed, or more proper
// self-crossings than the original had
func breaksTopology(orig, simplified orb.LineString) bool {
	if isClosed(orig) && len(simplified) < 4 {
		return true
	}
	n := crossings(simplified, 0)
	if n == 0 {
		return false
	}
	// the original only needs counting up to n
	return crossings(orig, n) < n
}

func isClosed(ls orb.LineString) bool {
	return len(ls) >= 4 && ls[0] == ls[len(ls)-1]
}

// CountCoordinates counts every coordinate of the line geometries the
// pipeline produces, including inside collections
func CountCoordinates(g orb.Geometry) int {
	switch g := g.(type) {
	case orb.LineString:
		return len(g)
	case orb.MultiLineString:
		n := 0
		for _, ls := range g {
			n += len(ls)
		}
		return n
	case orb.Ring:
		return len(g)
	case orb.Polygon:
		n := 0
		for _, r := range g {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range g {
			n += CountCoordinates(p)
		}
		return n
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(g)
	case orb.Collection:
		n := 0
		for _, c := range g {
			n += CountCoordinates(c)
		}
		return n
	}
	return 0
}
