package resolver

import (
	"github.com/arthur-debert/extman/pkg/catalog"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/types"
)

// Resolver owns a committed graph and hands out trials against it.
type Resolver struct {
	committed *Graph
}

// New returns a resolver with an empty committed graph over c.
func New(c *catalog.Catalog) *Resolver {
	return &Resolver{committed: NewGraph(c)}
}

// FromGraph adopts g as the committed graph.
func FromGraph(g *Graph) *Resolver {
	g.parent = nil
	return &Resolver{committed: g}
}

// Graph returns the committed graph.
func (r *Resolver) Graph() *Graph { return r.committed }

// Resolve returns the dependency-first closure of targets without committing.
func (r *Resolver) Resolve(targets []types.PackageID) ([]*types.Package, error) {
	g, err := r.committed.Resolve(targets, nil)
	if err != nil {
		return nil, err
	}
	return g.LoadOrder(), nil
}

// Try resolves targets on a snapshot of the committed graph.
func (r *Resolver) Try(targets []types.PackageID, prefs Preferences) (*Graph, error) {
	return r.committed.Resolve(targets, prefs)
}

// Commit makes trial the committed graph. Only a trial taken from the current
// generation may be committed; anything else was computed against stale state.
func (r *Resolver) Commit(trial *Graph) error {
	if err := r.Check(trial); err != nil {
		return err
	}
	trial.parent = nil
	r.committed = trial
	return nil
}

// Check reports whether Commit would accept trial, without committing it.
// A trial resolved from other uncommitted trials is accepted when the chain
// starts at the committed generation.
func (r *Resolver) Check(trial *Graph) error {
	if trial == nil {
		return errors.New(errors.ErrInvalidInput, "nothing to commit")
	}
	first := trial
	for first.parent != nil && first.generation > r.committed.generation+1 {
		first = first.parent
	}
	if first.catalog != r.committed.catalog || first.generation != r.committed.generation+1 {
		return errors.Newf(errors.ErrInternal, "stale resolution: generation %d does not follow %d",
			trial.generation, r.committed.generation)
	}
	return nil
}
