package activation

import (
	"github.com/arthur-debert/extman/pkg/catalog"
	"github.com/arthur-debert/extman/pkg/resolver"
	"github.com/arthur-debert/extman/pkg/types"
)

// State is an immutable activation snapshot. Operations return a new State
// and leave their input untouched.
type State struct {
	Catalog *catalog.Catalog
	// Graph is the resolution that produced Active.
	Graph *resolver.Graph
	// Installed holds every catalog package that is not active, sorted by name.
	Installed []*types.Package
	// Active is the dependency-consistent set in display order.
	Active []*types.Package
	// Explicit is the user-chosen subsequence of Active, in display order.
	Explicit []*types.Package
	// Preferred pins the versions re-resolution should keep when it can.
	Preferred resolver.Preferences
}

// NewState returns the empty state over c: nothing active, everything
// installed.
func NewState(c *catalog.Catalog) *State {
	s := &State{
		Catalog:   c,
		Graph:     resolver.NewGraph(c),
		Preferred: resolver.Preferences{},
	}
	s.Installed = remaining(c, nil)
	return s
}

// LoadOrder returns Active reversed, dependencies first.
func (s *State) LoadOrder() []*types.Package {
	return types.Reversed(s.Active)
}

// ExplicitLoadOrder returns Explicit reversed, dependencies first.
func (s *State) ExplicitLoadOrder() []*types.Package {
	return types.Reversed(s.Explicit)
}

// IsActive reports whether a package called name is active.
func (s *State) IsActive(name string) bool {
	return indexOf(s.Active, name) >= 0
}

// IsExplicit reports whether a package called name was chosen by the user.
func (s *State) IsExplicit(name string) bool {
	return indexOf(s.Explicit, name) >= 0
}

// ActivePackage returns the active package called name.
func (s *State) ActivePackage(name string) (*types.Package, bool) {
	if i := indexOf(s.Active, name); i >= 0 {
		return s.Active[i], true
	}
	return nil, false
}

func (s *State) clone() *State {
	out := &State{
		Catalog:   s.Catalog,
		Graph:     s.Graph,
		Installed: append([]*types.Package(nil), s.Installed...),
		Active:    append([]*types.Package(nil), s.Active...),
		Explicit:  append([]*types.Package(nil), s.Explicit...),
		Preferred: make(resolver.Preferences, len(s.Preferred)),
	}
	for k, v := range s.Preferred {
		out.Preferred[k] = v
	}
	return out
}

// derive builds the successor of s from a placed load order.
func (s *State) derive(g *resolver.Graph, load []*types.Package, explicitNames map[string]bool) *State {
	next := &State{
		Catalog:   s.Catalog,
		Graph:     g,
		Active:    types.Reversed(load),
		Preferred: make(resolver.Preferences, len(load)),
	}
	for _, p := range next.Active {
		if explicitNames[p.Name] {
			next.Explicit = append(next.Explicit, p)
		}
		next.Preferred[p.Name] = p.Version
	}
	next.Installed = remaining(s.Catalog, next.Active)
	return next
}

// remaining lists the catalog packages not in active, sorted by name.
func remaining(c *catalog.Catalog, active []*types.Package) []*types.Package {
	in := make(map[*types.Package]bool, len(active))
	for _, p := range active {
		in[p] = true
	}
	var out []*types.Package
	for _, p := range c.All() {
		if !in[p] {
			out = append(out, p)
		}
	}
	types.SortByName(out)
	return out
}

func indexOf(pkgs []*types.Package, name string) int {
	for i, p := range pkgs {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func preferencesWithout(prefs resolver.Preferences, name string) resolver.Preferences {
	out := make(resolver.Preferences, len(prefs))
	for k, v := range prefs {
		if k != name {
			out[k] = v
		}
	}
	return out
}

func versionsOf(pkgs []*types.Package) resolver.Preferences {
	out := make(resolver.Preferences, len(pkgs))
	for _, p := range pkgs {
		out[p.Name] = p.Version
	}
	return out
}

