package resolver

import (
	"sort"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/arthur-debert/extman/pkg/versions"
)

// Preferences name the version to keep for a name when it still satisfies
// every constraint, overriding the highest-version rule. Activation threads
// the currently active versions through here so unrelated changes never
// upgrade packages behind the user's back.
type Preferences map[string]versions.Version

// maxRounds bounds selection rounds per referenced name.
const maxRounds = 8

// Resolve computes the minimal consistent version set for targets on a clone
// of g. On success it returns the new graph, one generation ahead; g itself is
// never modified. Targets are given in load order preference: when two
// targets are unrelated, the earlier one loads first.
func (g *Graph) Resolve(targets []types.PackageID, prefs Preferences) (*Graph, error) {
	logger := logging.GetLogger("resolver")
	trial := g.Clone()

	pins, err := trial.pin(targets)
	if err != nil {
		logger.Debug().Err(err).Msg("Target set rejected")
		return nil, err
	}

	selected := map[string]*types.Package{}
	for _, p := range pins {
		selected[p.Name] = p
	}

	limit := maxRounds * (trial.catalog.Len() + 1)
	var lastChanged []string
	for round := 0; ; round++ {
		if round >= limit {
			return nil, &ResolutionError{Reason: ReasonDiverged, Names: lastChanged}
		}
		constraints := collect(pins, selected)
		next, err := trial.choose(constraints, selected, prefs)
		if err != nil {
			logger.Debug().Err(err).Int("round", round).Msg("Resolution failed")
			return nil, err
		}
		changed := diff(selected, next)
		if len(changed) == 0 {
			trial.nodes = make(map[string]*node, len(next))
			for name, p := range next {
				trial.nodes[name] = &node{pkg: p, constraints: constraints[name]}
			}
			break
		}
		lastChanged = changed
		selected = next
	}

	order, err := trial.loadOrder(pins)
	if err != nil {
		return nil, err
	}
	trial.order = order
	trial.generation = g.generation + 1
	trial.parent = g

	logger.Debug().
		Int("targets", len(targets)).
		Int("resolved", len(order)).
		Uint64("generation", trial.generation).
		Msg("Resolution succeeded")
	return trial, nil
}

func (g *Graph) pin(targets []types.PackageID) ([]*types.Package, error) {
	pins := make([]*types.Package, 0, len(targets))
	byName := map[string]*types.Package{}
	for _, id := range targets {
		p, ok := g.catalog.Find(id)
		if !ok {
			err := &ResolutionError{
				Reason:    ReasonMissing,
				Names:     []string{id.Name},
				Conflicts: []Constraint{explicit(id)},
			}
			for _, v := range g.catalog.Versions(id.Name) {
				err.Available = append(err.Available, v.Version.String())
			}
			if len(err.Available) > 0 {
				err.Reason = ReasonUnsatisfiable
			}
			return nil, err
		}
		if prev, dup := byName[p.Name]; dup {
			if prev.Version.Equal(p.Version) {
				continue
			}
			return nil, &ResolutionError{
				Reason:    ReasonConflictingTargets,
				Names:     []string{p.Name},
				Conflicts: []Constraint{explicit(prev.ID()), explicit(p.ID())},
			}
		}
		byName[p.Name] = p
		pins = append(pins, p)
	}
	return pins, nil
}

func explicit(id types.PackageID) Constraint {
	r := versions.MustParseRange("*")
	if id.Version != "" {
		if v, err := versions.Parse(id.Version); err == nil {
			r = versions.Exact(v)
		}
	}
	return Constraint{Name: id.Name, Range: r, From: id, Explicit: true}
}

// collect walks the current selection from the pins and gathers every
// constraint pulling on each reachable name.
func collect(pins []*types.Package, selected map[string]*types.Package) map[string][]Constraint {
	out := map[string][]Constraint{}
	visited := map[string]bool{}
	queue := make([]*types.Package, 0, len(pins))
	for _, p := range pins {
		out[p.Name] = append(out[p.Name], Constraint{
			Name:     p.Name,
			Range:    versions.Exact(p.Version),
			From:     p.ID(),
			Explicit: true,
		})
		queue = append(queue, p)
	}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if visited[p.Name] {
			continue
		}
		visited[p.Name] = true
		for _, d := range p.OrderedDependencies() {
			out[d.Name] = append(out[d.Name], Constraint{Name: d.Name, Range: d.Range, From: p.ID()})
			if next, ok := selected[d.Name]; ok && !visited[d.Name] {
				queue = append(queue, next)
			}
		}
	}
	return out
}

// choose selects, for every constrained name, the preferred version when it
// still fits, else the highest version satisfying all constraints.
func (g *Graph) choose(constraints map[string][]Constraint, selected map[string]*types.Package, prefs Preferences) (map[string]*types.Package, error) {
	names := make([]string, 0, len(constraints))
	for name := range constraints {
		names = append(names, name)
	}
	sort.Strings(names)

	next := make(map[string]*types.Package, len(names))
	for _, name := range names {
		cs := constraints[name]
		ranges := make([]versions.Range, len(cs))
		for i, c := range cs {
			ranges[i] = c.Range
		}
		candidates := g.catalog.Versions(name)
		if len(candidates) == 0 {
			return nil, &ResolutionError{Reason: ReasonMissing, Names: []string{name}, Conflicts: cs}
		}

		var pick *types.Package
		if pref, ok := prefs[name]; ok {
			for _, c := range candidates {
				if c.Version.Equal(pref) && versions.SatisfiesAll(c.Version, ranges) {
					pick = c
					break
				}
			}
		}
		if pick == nil {
			vs := make([]versions.Version, len(candidates))
			for i, c := range candidates {
				vs[i] = c.Version
			}
			if best, ok := versions.MaxSatisfying(ranges, vs); ok {
				for _, c := range candidates {
					if c.Version.Equal(best) {
						pick = c
						break
					}
				}
			}
		}
		if pick == nil {
			err := &ResolutionError{Reason: ReasonUnsatisfiable, Names: []string{name}, Conflicts: cs}
			for _, c := range candidates {
				err.Available = append(err.Available, c.Version.String())
			}
			return nil, err
		}
		next[name] = pick
	}
	return next, nil
}

// diff returns the names whose selection differs between a and b, sorted.
func diff(a, b map[string]*types.Package) []string {
	var out []string
	for name, p := range a {
		if q, ok := b[name]; !ok || q != p {
			out = append(out, name)
		}
	}
	for name := range b {
		if _, ok := a[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// loadOrder lays the closure out dependencies first, following pin order and
// then each package's declared dependency order.
func (g *Graph) loadOrder(pins []*types.Package) ([]*types.Package, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := map[string]int{}
	var order []*types.Package
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			start := 0
			for i, s := range stack {
				if s == name {
					start = i
					break
				}
			}
			cycle := append(append([]string(nil), stack[start:]...), name)
			return &ResolutionError{Reason: ReasonCycle, Names: uniqueSorted(cycle), Cycle: cycle}
		}
		n, ok := g.nodes[name]
		if !ok {
			return errors.Newf(errors.ErrInternal, "resolved graph lost %q", name)
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, d := range n.pkg.OrderedDependencies() {
			if err := visit(d.Name); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		order = append(order, n.pkg)
		return nil
	}

	for _, p := range pins {
		if err := visit(p.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func uniqueSorted(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
