package feature

import (
	"time"

	"github.com/routrace/mapgen/internal/catalog"
	"github.com/routrace/mapgen/internal/group"
	"github.com/routrace/mapgen/internal/highway"
)

// IndexEntry summarizes one highway document in data/highways/index.json
type IndexEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NameEn     string `json:"nameEn"`
	Color      string `json:"color"`
	Ref        string `json:"ref"`
	RefDisplay string `json:"refDisplay"`
	Group      string `json:"group,omitempty"`
	FileSize   int    `json:"fileSize"`
	UpdatedAt  string `json:"updatedAt"`
}

// Index is data/highways/index.json
type Index struct {
	Highways []IndexEntry `json:"highways"`
}

// NewIndexEntry describes a written highway document. The group is set only
// when the highway's name belongs to a configured group.
func NewIndexEntry(def catalog.Definition, features []highway.Feature, resolver *group.Resolver, size int, ts time.Time) IndexEntry {
	ref := PrimaryRef(features)
	entry := IndexEntry{
		ID:         def.ID,
		Name:       def.Name,
		NameEn:     def.NameEn,
		Color:      def.Color,
		Ref:        ref,
		RefDisplay: RefDisplay(ref),
		FileSize:   size,
		UpdatedAt:  ts.UTC().Format(TimeLayout),
	}
	if resolver != nil {
		if g, ok := resolver.Lookup(def.Name); ok {
			entry.Group = g
		}
	}
	return entry
}

// BuildIndex orders entries by catalog declaration order. Entries for ids
// not in the catalog are dropped.
func BuildIndex(cat *catalog.Catalog, entries []IndexEntry) Index {
	byID := make(map[string]IndexEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	idx := Index{Highways: []IndexEntry{}}
	for _, def := range cat.Highways() {
		if e, ok := byID[def.ID]; ok {
			idx.Highways = append(idx.Highways, e)
		}
	}
	return idx
}
