// Package navigation selects the route table a console user may navigate and decides
// what happens when a path is requested against it. Everything here is pure.
package navigation

import (
	"path"
	"strings"
)

// TableKind names one of the four disjoint route tables.
type TableKind string

const (
	TableUnauthenticated TableKind = "unauthenticated"
	TableSupport         TableKind = "support"
	TablePendingMerchant TableKind = "pending-merchant"
	TableMerchant        TableKind = "merchant"
)

// Route is a navigable destination. Pattern segments wrapped in braces ({id}) match any
// single non-empty segment.
type Route struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	// Demo marks product screens exposed read-only to visitors without identity.
	Demo bool `json:"demo,omitempty"`
}

// FallbackKind says what an unmatched path resolves to.
type FallbackKind int

const (
	FallbackRedirect FallbackKind = iota
	FallbackNotFound
)

// Fallback is the catch-all behavior of a table.
type Fallback struct {
	Kind     FallbackKind
	Location string // redirect target when Kind is FallbackRedirect
}

// Table is an immutable route table.
type Table struct {
	Kind     TableKind
	routes   []Route
	fallback Fallback
}

// Routes returns a copy of the table's routes.
func (t Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Fallback returns the catch-all behavior of the table.
func (t Table) Fallback() Fallback { return t.fallback }

// DecisionKind is the outcome of requesting a path.
type DecisionKind string

const (
	DecisionAllow    DecisionKind = "allow"
	DecisionRedirect DecisionKind = "redirect"
	DecisionNotFound DecisionKind = "not_found"
)

// Decision is the result of Table.Decide.
type Decision struct {
	Kind     DecisionKind `json:"kind"`
	Path     string       `json:"path"`
	Route    *Route       `json:"route,omitempty"`
	Location string       `json:"location,omitempty"`
}

// EffectivePath is the path the user ends up on after the decision is applied.
func (d Decision) EffectivePath() string {
	if d.Kind == DecisionRedirect {
		return d.Location
	}
	return d.Path
}

// Match returns the first route whose pattern matches p.
func (t Table) Match(p string) (Route, bool) {
	segs := splitPath(NormalizePath(p))
	for _, r := range t.routes {
		if matchSegments(splitPath(r.Pattern), segs) {
			return r, true
		}
	}
	return Route{}, false
}

// Decide resolves p against the table, applying the catch-all when nothing matches.
func (t Table) Decide(p string) Decision {
	np := NormalizePath(p)
	if r, ok := t.Match(np); ok {
		return Decision{Kind: DecisionAllow, Path: np, Route: &r}
	}
	if t.fallback.Kind == FallbackRedirect {
		return Decision{Kind: DecisionRedirect, Path: np, Location: t.fallback.Location}
	}
	return Decision{Kind: DecisionNotFound, Path: np}
}

// NormalizePath cleans p into an absolute path without query, fragment or trailing slash.
func NormalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, segs []string) bool {
	if len(pattern) != len(segs) {
		return false
	}
	for i, ps := range pattern {
		if strings.HasPrefix(ps, "{") && strings.HasSuffix(ps, "}") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if ps != segs[i] {
			return false
		}
	}
	return true
}
