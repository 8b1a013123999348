// Package catalog holds the static highway definitions and group rules.
//
// A Catalog is immutable once loaded and is passed explicitly to every
// pipeline stage that needs it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/routrace/mapgen/internal/group"
)

//go:embed default.yaml
var defaultYAML []byte

// Validation errors
var (
	ErrEmptyCatalog = errors.New("catalog defines no highways")
	ErrDuplicateID  = errors.New("duplicate highway id")
	ErrInvalid      = errors.New("invalid highway definition")
)

// MatchMode selects how a query is compared with a tag value
type MatchMode string

const (
	MatchPrefix   MatchMode = "prefix"
	MatchContains MatchMode = "contains"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Definition describes one highway emitted by the generator
type Definition struct {
	ID      string    `yaml:"id" json:"id"`
	Name    string    `yaml:"name" json:"name"`
	NameEn  string    `yaml:"nameEn" json:"nameEn"`
	Query   string    `yaml:"query" json:"query"`
	Aliases []string  `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Match   MatchMode `yaml:"match,omitempty" json:"match,omitempty"`
	Color   string    `yaml:"color" json:"color"`
}

// Matches reports whether a tag value matches the definition's query or
// one of its aliases
func (d Definition) Matches(value string) bool {
	if value == "" {
		return false
	}
	if d.matchOne(d.Query, value) {
		return true
	}
	for _, alias := range d.Aliases {
		if d.matchOne(alias, value) {
			return true
		}
	}
	return false
}

func (d Definition) matchOne(pattern, value string) bool {
	if pattern == "" {
		return false
	}
	if d.Match == MatchContains {
		return strings.Contains(value, pattern)
	}
	return strings.HasPrefix(value, pattern)
}

// MatchAny returns the first of values matching the definition
func (d Definition) MatchAny(values []string) (string, bool) {
	for _, v := range values {
		if d.Matches(v) {
			return v, true
		}
	}
	return "", false
}

type file struct {
	Highways []Definition `yaml:"highways"`
	Groups   []group.Rule `yaml:"groups"`
}

// Catalog is the ordered set of highway definitions plus group rules
type Catalog struct {
	highways []Definition
	groups   []group.Rule
	byID     map[string]int
	byName   map[string]int
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load reads a catalog from a YAML file. An empty path loads the default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return New(f.Highways, f.Groups)
}

// New builds a catalog from definitions and group rules. Both slices are
// copied.
func New(highways []Definition, groups []group.Rule) (*Catalog, error) {
	if len(highways) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		highways: make([]Definition, len(highways)),
		groups:   make([]group.Rule, len(groups)),
		byID:     make(map[string]int, len(highways)),
		byName:   make(map[string]int, len(highways)),
	}
	copy(c.groups, groups)

	for i, d := range highways {
		if d.Match == "" {
			d.Match = MatchPrefix
		}
		d.Aliases = append([]string(nil), d.Aliases...)
		if err := validateDefinition(d); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		c.highways[i] = d
		c.byID[d.ID] = i
		if _, seen := c.byName[d.Name]; !seen {
			c.byName[d.Name] = i
		}
	}

	for i, g := range c.groups {
		if g.Prefix == "" || g.Group == "" {
			return nil, fmt.Errorf("%w: group rule %d needs prefix and group", ErrInvalid, i)
		}
	}
	return c, nil
}

func validateDefinition(d Definition) error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: missing id (name %q)", ErrInvalid, d.Name)
	case d.Name == "":
		return fmt.Errorf("%w: %s: missing name", ErrInvalid, d.ID)
	case d.Query == "":
		return fmt.Errorf("%w: %s: missing query", ErrInvalid, d.ID)
	case d.Match != MatchPrefix && d.Match != MatchContains:
		return fmt.Errorf("%w: %s: unknown match mode %q", ErrInvalid, d.ID, d.Match)
	case !colorPattern.MatchString(d.Color):
		return fmt.Errorf("%w: %s: color %q is not #rrggbb", ErrInvalid, d.ID, d.Color)
	}
	if strings.ContainsAny(d.ID, `/\.`) {
		return fmt.Errorf("%w: %s: id must be usable as a file name", ErrInvalid, d.ID)
	}
	return nil
}

// Highways returns the definitions in declaration order
func (c *Catalog) Highways() []Definition {
	out := make([]Definition, len(c.highways))
	copy(out, c.highways)
	return out
}

// Groups returns the group rules in declaration order
func (c *Catalog) Groups() []group.Rule {
	out := make([]group.Rule, len(c.groups))
	copy(out, c.groups)
	return out
}

// Lookup finds a definition by id
func (c *Catalog) Lookup(id string) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.highways[i], true
}

// ByName finds the first definition with the given display name
func (c *Catalog) ByName(name string) (Definition, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Definition{}, false
	}
	return c.highways[i], true
}

// Position returns the declaration index of a highway id, or -1
func (c *Catalog) Position(id string) int {
	if i, ok := c.byID[id]; ok {
		return i
	}
	return -1
}

// Select returns the definitions whose name contains any of the filters,
// in declaration order. No filters selects everything.
func (c *Catalog) Select(filters []string) []Definition {
	if len(filters) == 0 {
		return c.Highways()
	}
	var out []Definition
	for _, d := range c.highways {
		for _, f := range filters {
			if f != "" && (strings.Contains(d.Name, f) || d.ID == f) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Resolver returns a group resolver over the catalog's rules
func (c *Catalog) Resolver() *group.Resolver {
	return group.NewResolver(c.groups)
}

// Warnings reports configuration that is valid but relies on declaration
// order to stay deterministic
func (c *Catalog) Warnings() []string {
	var out []string
	for _, a := range c.Resolver().Check() {
		out = append(out, "group rule "+a.String())
	}

	for _, rule := range c.groups {
		if _, ok := c.ByName(rule.Group); !ok {
			out = append(out, fmt.Sprintf("group %q has no highway definition, its ways stay with the highway that found them", rule.Group))
		}
	}

	for i, a := range c.highways {
		for _, b := range c.highways[i+1:] {
			if a.Matches(b.Query) || b.Matches(a.Query) {
				out = append(out, fmt.Sprintf("highways %s and %s have overlapping queries %q and %q", a.ID, b.ID, a.Query, b.Query))
			}
		}
	}
	return out
}

// MarshalYAML encodes the catalog in the same layout Parse reads
func (c *Catalog) MarshalYAML() (any, error) {
	return file{Highways: c.highways, Groups: c.groups}, nil
}
