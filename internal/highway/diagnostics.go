package highway

import (
	"sort"
	"sync"

	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

// Kind classifies a recoverable problem found while processing a highway
type Kind int

const (
	// NoCandidatesFound: a highway's pattern matched nothing in the extract
	NoCandidatesFound Kind = iota
	// DanglingNodeReference: a way references a node absent from the extract
	DanglingNodeReference
	// DegenerateGeometry: fewer than 2 resolvable coordinates
	DegenerateGeometry
	// SimplifyFallback: simplification would have introduced a self-crossing
	SimplifyFallback
	// UnresolvedMember: a relation member way has no retained payload
	UnresolvedMember
	// HighwayFailed: unexpected error while processing one highway
	HighwayFailed
)

var kindNames = [...]string{
	NoCandidatesFound:     "no_candidates_found",
	DanglingNodeReference: "dangling_node_reference",
	DegenerateGeometry:    "degenerate_geometry",
	SimplifyFallback:      "simplify_fallback",
	UnresolvedMember:      "unresolved_member",
	HighwayFailed:         "highway_failed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Diagnostic is one structured report entry
type Diagnostic struct {
	Kind      Kind
	HighwayID string
	WayID     osm.WayID // 0 when not tied to a way
	Detail    string
}

// Diagnostics collects reports from concurrently processed highways
type Diagnostics struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewDiagnostics creates an empty report
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records a diagnostic
func (d *Diagnostics) Add(diag Diagnostic) {
	d.mu.Lock()
	d.items = append(d.items, diag)
	d.mu.Unlock()
}

// Items returns all diagnostics ordered by highway, kind and way id so the
// report does not depend on worker scheduling
func (d *Diagnostics) Items() []Diagnostic {
	d.mu.Lock()
	out := make([]Diagnostic, len(d.items))
	copy(out, d.items)
	d.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.HighwayID != b.HighwayID {
			return a.HighwayID < b.HighwayID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.WayID < b.WayID
	})
	return out
}

// Count returns the number of diagnostics of a kind
func (d *Diagnostics) Count(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, item := range d.items {
		if item.Kind == kind {
			n++
		}
	}
	return n
}

// ForHighway returns the diagnostics recorded against one highway
func (d *Diagnostics) ForHighway(id string) []Diagnostic {
	var out []Diagnostic
	for _, item := range d.Items() {
		if item.HighwayID == id {
			out = append(out, item)
		}
	}
	return out
}

// Log writes a per-kind summary, and every entry at debug level
func (d *Diagnostics) Log(log *zap.Logger) {
	items := d.Items()
	counts := make(map[Kind]int)
	for _, item := range items {
		counts[item.Kind]++
		log.Debug("Diagnostic",
			zap.Stringer("kind", item.Kind),
			zap.String("highway", item.HighwayID),
			zap.Int64("way", int64(item.WayID)),
			zap.String("detail", item.Detail))
	}

	fields := make([]zap.Field, 0, len(kindNames))
	for k := range kindNames {
		if n := counts[Kind(k)]; n > 0 {
			fields = append(fields, zap.Int(Kind(k).String(), n))
		}
	}
	if len(fields) == 0 {
		log.Info("No diagnostics")
		return
	}
	log.Warn("Diagnostics summary", fields...)
}
