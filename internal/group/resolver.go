// Package group maps raw highway names to their canonical umbrella group.
//
// Rules are tested in declaration order and the first matching prefix wins.
// A name matching no rule is its own group.
package group

import (
	"fmt"
	"strings"
	"sync"
)

// Rule maps every name starting with Prefix to the canonical Group name
type Rule struct {
	Prefix string `yaml:"prefix"`
	Group  string `yaml:"group"`
}

// Resolver resolves raw names against an ordered rule list and caches the
// result per distinct name
type Resolver struct {
	rules []Rule

	mu    sync.RWMutex
	cache map[string]result
}

type result struct {
	group   string
	matched bool
}

// NewResolver creates a resolver. The rules slice is copied so later changes
// by the caller do not affect resolution.
func NewResolver(rules []Rule) *Resolver {
	r := &Resolver{
		rules: make([]Rule, len(rules)),
		cache: make(map[string]result),
	}
	copy(r.rules, rules)
	return r
}

// Rules returns a copy of the rules in declaration order
func (r *Resolver) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Resolve returns the canonical group for raw, or raw itself when no prefix
// matches
func (r *Resolver) Resolve(raw string) string {
	g, _ := r.Lookup(raw)
	return g
}

// Lookup is Resolve that also reports whether a rule matched
func (r *Resolver) Lookup(raw string) (string, bool) {
	r.mu.RLock()
	res, ok := r.cache[raw]
	r.mu.RUnlock()
	if ok {
		return res.group, res.matched
	}

	res.group, res.matched = match(r.rules, raw)

	r.mu.Lock()
	r.cache[raw] = res
	r.mu.Unlock()
	return res.group, res.matched
}

// CacheSize returns the number of distinct names resolved so far
func (r *Resolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func match(rules []Rule, raw string) (string, bool) {
	for _, rule := range rules {
		if rule.Prefix != "" && strings.HasPrefix(raw, rule.Prefix) {
			return rule.Group, true
		}
	}
	return raw, false
}

// Ambiguity describes a rule set property that makes first-match-wins
// load-bearing
type Ambiguity struct {
	Rule   Rule
	Other  *Rule // overlapping rule, nil for idempotency problems
	Reason string
}

func (a Ambiguity) String() string {
	if a.Other != nil {
		return fmt.Sprintf("prefix %q (-> %s) overlaps %q (-> %s): %s",
			a.Rule.Prefix, a.Rule.Group, a.Other.Prefix, a.Other.Group, a.Reason)
	}
	return fmt.Sprintf("prefix %q (-> %s): %s", a.Rule.Prefix, a.Rule.Group, a.Reason)
}

// Check flags rule sets that are only deterministic because of declaration
// order: canonical names that do not resolve to themselves, and prefixes
// that are prefixes of one another.
func (r *Resolver) Check() []Ambiguity {
	var out []Ambiguity

	for _, rule := range r.rules {
		if got, _ := match(r.rules, rule.Group); got != rule.Group {
			out = append(out, Ambiguity{
				Rule:   rule,
				Reason: fmt.Sprintf("canonical name resolves to %q, resolution is not idempotent", got),
			})
		}
	}

	for i := range r.rules {
		for j := i + 1; j < len(r.rules); j++ {
			a, b := r.rules[i], r.rules[j]
			if !strings.HasPrefix(a.Prefix, b.Prefix) && !strings.HasPrefix(b.Prefix, a.Prefix) {
				continue
			}
			reason := "prefixes are not disjoint, declaration order decides"
			if a.Group == b.Group {
				reason = "prefixes are not disjoint but share a group"
			}
			other := b
			out = append(out, Ambiguity{Rule: a, Other: &other, Reason: reason})
		}
	}
	return out
}
