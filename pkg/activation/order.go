package activation

import (
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/resolver"
	"github.com/arthur-debert/extman/pkg/types"
)

// Direction is a one-slot move within display order.
type Direction int

const (
	// Up moves toward the front of display order.
	Up Direction = iota
	// Down moves toward the back of display order.
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, errors.Newf(errors.ErrInvalidInput, "unknown direction %q", s).WithDetail("direction", s)
}

// Add makes pkg explicit at the top of the priority list and activates its
// closure. Any other version of the same name leaves the explicit list. On
// failure s is returned unchanged together with the error.
func Add(s *State, pkg *types.Package, repair bool) (*State, error) {
	logger := logging.GetLogger("activation").With().
		Str("extension", pkg.Name).
		Str("version", pkg.Version.String()).
		Logger()

	requested := []*types.Package{pkg}
	for _, p := range s.Explicit {
		if p.Name != pkg.Name {
			requested = append(requested, p)
		}
	}

	next, err := s.rebuild(requested, preferencesWithout(s.Preferred, pkg.Name), pkg.Name)
	if err != nil {
		logger.Debug().Err(err).Msg("Activation rejected")
		return s, err
	}

	if pairs := inversions(types.Names(requested), types.Names(next.Explicit)); len(pairs) > 0 {
		derr := &DependencyError{Kind: KindMisordered, Pairs: pairs}
		if !repair {
			logger.Debug().Err(derr).Msg("Activation misordered")
			return s, derr
		}
		logger.Warn().Err(derr).Msg("Repaired activation order")
	}

	logger.Info().Int("active", len(next.Active)).Msg("Extension activated")
	return next, nil
}

// Remove drops the explicit package called name and deactivates everything
// no longer required.
func Remove(s *State, name string) (*State, error) {
	logger := logging.GetLogger("activation").With().Str("extension", name).Logger()

	if !s.IsExplicit(name) {
		return s, errors.Newf(errors.ErrNotFound, "%s is not explicitly active", name).
			WithDetail("extension", name)
	}

	requested := make([]*types.Package, 0, len(s.Explicit)-1)
	for _, p := range s.Explicit {
		if p.Name != name {
			requested = append(requested, p)
		}
	}

	next, err := s.rebuild(requested, s.Preferred, "")
	if err != nil {
		logger.Debug().Err(err).Msg("Deactivation rejected")
		return s, err
	}
	logger.Info().
		Int("active", len(next.Active)).
		Int("released", len(s.Active)-len(next.Active)).
		Msg("Extension deactivated")
	return next, nil
}

// Move shifts the active package called name one slot in display order. It
// reports false, with s unchanged, when the move would put the package above
// something that depends on it or below something it depends on, or when the
// package is already at that end.
func Move(s *State, name string, d Direction) (*State, bool, error) {
	i := indexOf(s.Active, name)
	if i < 0 {
		return s, false, errors.Newf(errors.ErrNotFound, "%s is not active", name).
			WithDetail("extension", name)
	}

	j := i - 1
	if d == Down {
		j = i + 1
	}
	if j < 0 || j >= len(s.Active) {
		return s, false, nil
	}

	mover, other := s.Active[i], s.Active[j]
	if d == Up && other.DependsOn(mover.Name) {
		return s, false, nil
	}
	if d == Down && mover.DependsOn(other.Name) {
		return s, false, nil
	}

	next := s.clone()
	next.Active[i], next.Active[j] = next.Active[j], next.Active[i]
	explicit := make(map[string]bool, len(s.Explicit))
	for _, p := range s.Explicit {
		explicit[p.Name] = true
	}
	next.Explicit = next.Explicit[:0]
	for _, p := range next.Active {
		if explicit[p.Name] {
			next.Explicit = append(next.Explicit, p)
		}
	}

	logger := logging.GetLogger("activation")

	logger.Debug().
		Str("extension", name).
		Str("direction", d.String()).
		Str("past", other.Name).
		Msg("Extension moved")
	return next, true, nil
}

// Restore replaces s wholesale with a verbatim load order and the explicit
// subset of it, as read from a saved file. Both lists are dependency-first.
// The order must already be valid and must contain the resolved closure of
// explicit.
func Restore(s *State, load []*types.Package, explicit []*types.Package) (*State, error) {
	if err := Validate(load); err != nil {
		return s, err
	}

	inLoad := make(map[string]*types.Package, len(load))
	for _, p := range load {
		inLoad[p.Name] = p
	}
	explicitNames := make(map[string]bool, len(explicit))
	for _, p := range explicit {
		if inLoad[p.Name] != p {
			return s, errors.Newf(errors.ErrInvalidInput, "explicit %s is not part of the load order", p).
				WithDetail("extension", p.Name)
		}
		explicitNames[p.Name] = true
	}

	g, err := s.Graph.Resolve(types.IDs(explicit), versionsOf(load))
	if err != nil {
		return s, err
	}
	for _, p := range g.LoadOrder() {
		if inLoad[p.Name] != p {
			return s, errors.Newf(errors.ErrDependencyOrder, "%s is required but not in the load order", p).
				WithDetail("extension", p.Name)
		}
	}

	next := s.derive(g, load, explicitNames)
	logger := logging.GetLogger("activation")
	logger.Info().
		Int("active", len(next.Active)).
		Int("explicit", len(next.Explicit)).
		Msg("Activation restored")
	return next, nil
}

// Validate checks that every non-reserved dependency of every package in
// load is present and comes earlier.
func Validate(load []*types.Package) error {
	pos := make(map[string]int, len(load))
	for i, p := range load {
		pos[p.Name] = i
	}
	var pairs []Pair
	for i, p := range load {
		for _, dep := range p.OrderedDependencies() {
			if j, ok := pos[dep.Name]; !ok || j >= i {
				pairs = append(pairs, Pair{First: p.Name, Second: dep.Name})
			}
		}
	}
	if len(pairs) > 0 {
		return &DependencyError{Kind: KindInvalid, Pairs: pairs}
	}
	return nil
}

// rebuild resolves requested (display order) and places the closure.
// fresh names an extension that should be placed as newly added even if it
// was active before.
func (s *State) rebuild(requested []*types.Package, prefs resolver.Preferences, fresh string) (*State, error) {
	g, err := s.Graph.Resolve(types.IDs(types.Reversed(requested)), prefs)
	if err != nil {
		return nil, err
	}

	load, err := place(g, s.LoadOrder(), types.Reversed(requested), fresh)
	if err != nil {
		return nil, err
	}
	if err := Validate(load); err != nil {
		return nil, err
	}

	explicitNames := make(map[string]bool, len(requested))
	for _, p := range requested {
		explicitNames[p.Name] = true
	}
	return s.derive(g, load, explicitNames), nil
}

// place replays activation: previous extensions in their previous load
// order, then the requested ones dependency end first, each preceded by
// whatever it still needs.
func place(g *resolver.Graph, previous, requested []*types.Package, fresh string) ([]*types.Package, error) {
	placed := map[string]bool{}
	visiting := map[string]bool{}
	var out []*types.Package

	var visit func(name string) error
	visit = func(name string) error {
		if placed[name] {
			return nil
		}
		if visiting[name] {
			return errors.Newf(errors.ErrInternal, "dependency loop through %s", name)
		}
		p, ok := g.Selected(name)
		if !ok {
			return errors.Newf(errors.ErrInternal, "%s missing from resolution", name)
		}
		visiting[name] = true
		for _, dep := range p.OrderedDependencies() {
			if err := visit(dep.Name); err != nil {
				return err
			}
		}
		visiting[name] = false
		placed[name] = true
		out = append(out, p)
		return nil
	}

	for _, p := range previous {
		if p.Name == fresh {
			continue
		}
		if _, ok := g.Selected(p.Name); !ok {
			continue
		}
		if err := visit(p.Name); err != nil {
			return nil, err
		}
	}
	for _, p := range requested {
		if err := visit(p.Name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// inversions returns every pair ordered one way in want and the other way in
// got. Names missing from got are ignored.
func inversions(want, got []string) []Pair {
	pos := make(map[string]int, len(got))
	for i, n := range got {
		pos[n] = i
	}
	var pairs []Pair
	for i := 0; i < len(want); i++ {
		pi, ok := pos[want[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(want); j++ {
			if pj, ok := pos[want[j]]; ok && pj < pi {
				pairs = append(pairs, Pair{First: want[i], Second: want[j]})
			}
		}
	}
	return pairs
}
