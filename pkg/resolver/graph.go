// Package resolver computes consistent version sets for extensions.
//
// The constraint graph has one node per referenced name holding the selected
// package and every constraint pulling on it. Resolution never mutates a
// graph: it works on a clone and hands back a new graph one generation ahead,
// which the caller commits or discards.
package resolver

import (
	"fmt"
	"sort"

	"github.com/arthur-debert/extman/pkg/catalog"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/arthur-debert/extman/pkg/versions"
)

// Constraint is one edge of the graph: From requires Name within Range.
// Explicit constraints come from the target set itself.
type Constraint struct {
	Name     string
	Range    versions.Range
	From     types.PackageID
	Explicit bool
}

func (c Constraint) String() string {
	if c.Explicit {
		return fmt.Sprintf("%s %s (explicit)", c.Name, c.Range)
	}
	return fmt.Sprintf("%s requires %s %s", c.From, c.Name, c.Range)
}

type node struct {
	pkg         *types.Package
	constraints []Constraint
}

// Graph is the committed or trial state of a resolution.
type Graph struct {
	catalog    *catalog.Catalog
	generation uint64
	// parent is the graph this one was resolved from, until committed.
	parent     *Graph
	nodes      map[string]*node
	order      []*types.Package
}

// NewGraph returns the empty generation-zero graph over c.
func NewGraph(c *catalog.Catalog) *Graph {
	return &Graph{catalog: c, nodes: map[string]*node{}}
}

// Clone returns a structural copy sharing only immutable packages.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		catalog:    g.catalog,
		generation: g.generation,
		nodes:      make(map[string]*node, len(g.nodes)),
		order:      append([]*types.Package(nil), g.order...),
	}
	for name, n := range g.nodes {
		out.nodes[name] = &node{
			pkg:         n.pkg,
			constraints: append([]Constraint(nil), n.constraints...),
		}
	}
	return out
}

// Generation counts successful resolutions leading to this graph.
func (g *Graph) Generation() uint64 { return g.generation }

// Catalog returns the catalog the graph resolves against.
func (g *Graph) Catalog() *catalog.Catalog { return g.catalog }

// LoadOrder returns the resolved closure, dependencies first.
func (g *Graph) LoadOrder() []*types.Package {
	return append([]*types.Package(nil), g.order...)
}

// Selected returns the package chosen for name.
func (g *Graph) Selected(name string) (*types.Package, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, false
	}
	return n.pkg, true
}

// Constraints returns every constraint pulling on name.
func (g *Graph) Constraints(name string) []Constraint {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return append([]Constraint(nil), n.constraints...)
}

// Dependents returns the names whose selected package depends on name,
// sorted.
func (g *Graph) Dependents(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, c := range n.constraints {
		if c.Explicit || seen[c.From.Name] {
			continue
		}
		seen[c.From.Name] = true
		out = append(out, c.From.Name)
	}
	sort.Strings(out)
	return out
}

