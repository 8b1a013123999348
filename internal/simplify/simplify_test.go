package simplify

import (
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
)

func TestCollinearLineReducesToEndpoints(t *testing.T) {
	ls := make(orb.LineString, 1000)
	for i := range ls {
		ls[i] = orb.Point{139.0 + float64(i)*0.001, 35.0 + float64(i)*0.0005}
	}

	orig := ls.Clone()

	res := LineString(ls, DefaultTolerance)
	if res.After != 2 || len(res.Line) != 2 {
		t.Fatalf("got %d points, want 2", len(res.Line))
	}
	if res.Line[0] != ls[0] || res.Line[1] != ls[999] {
		t.Errorf("endpoints = %v, want %v and %v", res.Line, ls[0], ls[999])
	}
	if res.Before != 1000 || res.Fallback {
		t.Errorf("result = before %d fallback %v", res.Before, res.Fallback)
	}
	if !ls.Equal(orig) {
		t.Error("input was modified")
	}
}

func TestZeroToleranceIsNoop(t *testing.T) {
	ls := orb.LineString{{0, 0}, {1, 0}, {2, 0}, {3, 1}}

	for _, tol := range []float64{0, -1} {
		got := Simplify(ls, tol)
		if !got.Equal(ls) {
			t.Errorf("Simplify(tol=%v) = %v, want unchanged", tol, got)
		}
		got[0] = orb.Point{9, 9}
		if ls[0] != (orb.Point{0, 0}) {
			t.Fatalf("Simplify(tol=%v) returned the input slice", tol)
		}
	}
}

func TestShortLines(t *testing.T) {
	for _, ls := range []orb.LineString{nil, {{1, 1}}, {{1, 1}, {2, 2}}} {
		if got := Simplify(ls, 1); len(got) != len(ls) {
			t.Errorf("Simplify(%v) = %v", ls, got)
		}
	}
}

func TestEndpointsAndCount(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for n := 0; n < 50; n++ {
		ls := make(orb.LineString, 3+r.Intn(200))
		x, y := 139.0, 35.0
		for i := range ls {
			x += r.Float64() * 0.002
			y += (r.Float64() - 0.5) * 0.002
			ls[i] = orb.Point{x, y}
		}

		for _, tol := range []float64{0, 0.0001, 0.001, 0.01, 1} {
			got := Simplify(ls, tol)
			if len(got) > len(ls) {
				t.Fatalf("tol %v: count grew from %d to %d", tol, len(ls), len(got))
			}
			if got[0] != ls[0] || got[len(got)-1] != ls[len(ls)-1] {
				t.Fatalf("tol %v: endpoints changed", tol)
			}
			if again := Simplify(ls, tol); !again.Equal(got) {
				t.Fatalf("tol %v: result not deterministic", tol)
			}
		}
	}
}

func TestFallbackOnNewCrossing(t *testing.T) {
	// dropping the small bump at x=1 makes the first segment run through
	// the later vertical segment
	ls := orb.LineString{
		{0, 0},
		{1, 0.0005},
		{2, 0},
		{2, -1},
		{1, -1},
		{1, 0.0003},
	}
	if n := crossings(ls, 0); n != 0 {
		t.Fatalf("input has %d crossings, want 0", n)
	}

	plain := orb.LineString{{0, 0}, {2, 0}, {2, -1}, {1, -1}, {1, 0.0003}}
	if n := crossings(plain, 0); n != 1 {
		t.Fatalf("naive simplification has %d crossings, want 1", n)
	}

	res := LineString(ls, DefaultTolerance)
	if !res.Fallback {
		t.Fatal("expected fallback to the original line")
	}
	if !res.Line.Equal(ls) {
		t.Errorf("fallback line = %v, want the input", res.Line)
	}
}

func TestExistingCrossingKept(t *testing.T) {
	// a figure eight already crosses itself once; simplification that does
	// not add crossings is accepted
	ls := orb.LineString{{0, 0}, {1, 1}, {1, 0}, {0.5, 0.0001}, {0, 1}}
	res := LineString(ls, DefaultTolerance)
	if res.Fallback {
		t.Errorf("unexpected fallback, result %v", res.Line)
	}
}

func TestClosedLineCollapse(t *testing.T) {
	ring := orb.LineString{{0, 0}, {0.0005, 0}, {0.0005, 0.0005}, {0, 0.0005}, {0, 0}}
	res := LineString(ring, DefaultTolerance)
	if !res.Fallback || len(res.Line) != 5 {
		t.Errorf("collapsed ring = %v fallback %v, want original", res.Line, res.Fallback)
	}

	big := orb.LineString{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	if res := LineString(big, DefaultTolerance); res.Fallback || len(res.Line) != 5 {
		t.Errorf("square = %v fallback %v", res.Line, res.Fallback)
	}
}

func TestMultiLineString(t *testing.T) {
	mls := orb.MultiLineString{
		{{0, 0}, {1, 0.00001}, {2, 0}},
		{{0, 0}, {1, 0.0005}, {2, 0}, {2, -1}, {1, -1}, {1, 0.0003}},
	}
	out, fallbacks := MultiLineString(mls, DefaultTolerance)
	if fallbacks != 1 {
		t.Errorf("fallbacks = %d, want 1", fallbacks)
	}
	if len(out[0]) != 2 || len(out[1]) != 6 {
		t.Errorf("parts = %d and %d points", len(out[0]), len(out[1]))
	}
	if len(mls[0]) != 3 {
		t.Error("input part was modified")
	}
}

func TestCountCoordinates(t *testing.T) {
	ls := orb.LineString{{0, 0}, {1, 1}, {2, 2}}
	mls := orb.MultiLineString{ls, {{0, 0}, {1, 1}}}

	tests := []struct {
		name string
		geom orb.Geometry
		want int
	}{
		{"linestring", ls, 3},
		{"multilinestring", mls, 5},
		{"collection", orb.Collection{ls, mls, orb.Point{1, 1}}, 9},
		{"polygon", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, 4},
		{"empty", orb.LineString{}, 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		if got := CountCoordinates(tt.geom); got != tt.want {
			t.Errorf("%s: CountCoordinates() = %d, want %d", tt.name, got, tt.want)
		}
	}
}
