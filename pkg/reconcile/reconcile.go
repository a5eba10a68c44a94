// Package reconcile rebuilds an activation state from a saved file.
//
// Two strategies are tried in order. The full strategy replays the saved full
// load order verbatim and only succeeds when every entry is installed at the
// exact saved version. The sparse strategy replays the explicit entries one
// activation at a time, letting the resolver pick dependencies again. Sparse
// only runs when full failed for a dependency reason: a structurally broken
// file fails both.
package reconcile

import (
	stderrors "errors"

	"github.com/arthur-debert/extman/pkg/activation"
	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/merge"
	"github.com/arthur-debert/extman/pkg/persist"
	"github.com/arthur-debert/extman/pkg/types"
)

// Strategy names an import strategy.
type Strategy string

const (
	StrategyFull   Strategy = "full"
	StrategySparse Strategy = "sparse"
)

// DefaultUserLayer names the user-set options in merge reports.
const DefaultUserLayer = "user"

// Result is the outcome of a successful strategy.
type Result struct {
	Strategy Strategy
	State    *activation.State
	Merged   *merge.MergedConfiguration
	// User holds the user-set options read from the file.
	User []types.Contribution
}

// Report is one attempted strategy. Failure is nil when it succeeded.
type Report struct {
	Strategy Strategy
	Failure  *ImportFailure
}

// OK reports whether the strategy succeeded.
func (r Report) OK() bool { return r.Failure == nil }

// StrategyReport lists every attempt and the first successful result.
type StrategyReport struct {
	Reports []Report
	Result  *Result
}

// Err joins the failures of every attempt when none succeeded.
func (r *StrategyReport) Err() error {
	if r.Result != nil {
		return nil
	}
	errs := make([]error, 0, len(r.Reports))
	for _, rep := range r.Reports {
		if rep.Failure != nil {
			errs = append(errs, rep.Failure)
		}
	}
	return stderrors.Join(errs...)
}

type settings struct {
	userLayer string
}

// Option adjusts AttemptStrategies.
type Option func(*settings)

// WithUserLayer names the layer holding user-set options.
func WithUserLayer(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.userLayer = name
		}
	}
}

// AttemptStrategies reconstructs a state over current's catalog from f. It
// never returns an error; every failure is captured in the report.
func AttemptStrategies(f *persist.File, current *activation.State, repair bool, opts ...Option) *StrategyReport {
	cfg := settings{userLayer: DefaultUserLayer}
	for _, o := range opts {
		o(&cfg)
	}
	logger := logging.GetLogger("reconcile")
	report := &StrategyReport{}

	attempts := []struct {
		strategy Strategy
		run      func() (*activation.State, *ImportFailure)
	}{
		{StrategyFull, func() (*activation.State, *ImportFailure) { return full(f, current) }},
		{StrategySparse, func() (*activation.State, *ImportFailure) { return sparse(f, current, repair) }},
	}

	for i, a := range attempts {
		if i > 0 {
			last := report.Reports[len(report.Reports)-1].Failure
			if !last.DependencyRelated() {
				break
			}
		}
		state, failure := a.run()
		report.Reports = append(report.Reports, Report{Strategy: a.strategy, Failure: failure})
		if failure != nil {
			logger.Info().
				Str("strategy", string(a.strategy)).
				Str("code", string(failure.Code)).
				Str("extension", failure.Extension).
				Msg(failure.Message)
			continue
		}

		user := f.UserContributions()
		report.Result = &Result{
			Strategy: a.strategy,
			State:    state,
			Merged:   merge.Merge(state.Active, merge.Layer{Name: cfg.userLayer, Contributions: user}),
			User:     user,
		}
		logger.Info().
			Str("strategy", string(a.strategy)).
			Int("active", len(state.Active)).
			Msg("Import succeeded")
		break
	}
	return report
}

func checkFormat(f *persist.File) *ImportFailure {
	if f == nil {
		return generic("no activation file")
	}
	if f.Meta.FormatVersion != persist.FormatVersion {
		return generic("unsupported format version %d", f.Meta.FormatVersion)
	}
	return nil
}

// full replays the full load order verbatim.
func full(f *persist.File, current *activation.State) (*activation.State, *ImportFailure) {
	if failure := checkFormat(f); failure != nil {
		return nil, failure
	}
	c := current.Catalog

	load := make([]*types.Package, 0, len(f.Full.LoadOrder))
	position := make(map[string]int, len(f.Full.LoadOrder))
	for i, e := range f.Full.LoadOrder {
		if e.Extension == "" {
			return nil, generic("full load order entry %d has no extension name", i+1)
		}
		if _, dup := position[e.Extension]; dup {
			return nil, generic("%s appears twice in the full load order", e.Extension)
		}
		if e.Version == "" {
			return nil, missing(e.Extension, "%s has no version in the full load order", e.Extension)
		}
		p, ok := c.Find(e.ID())
		if !ok {
			return nil, missing(e.Extension, "%s is not installed", e)
		}
		position[e.Extension] = i
		load = append(load, p)
	}

	for i, p := range load {
		for _, dep := range p.OrderedDependencies() {
			if j, ok := position[dep.Name]; !ok || j >= i {
				return nil, wrongOrder(dep.Name, "%s requires %s, which does not precede it in the full load order", p.Name, dep.Name)
			}
		}
	}

	explicit := make([]*types.Package, 0, len(f.Sparse.LoadOrder))
	wanted := make(map[string]bool, len(f.Sparse.LoadOrder))
	for _, e := range f.Sparse.LoadOrder {
		i, ok := position[e.Extension]
		if !ok {
			return nil, wrongOrder(e.Extension, "%s is explicit but missing from the full load order", e.Extension)
		}
		if e.Version != "" && e.Version != f.Full.LoadOrder[i].Version {
			return nil, wrongOrder(e.Extension, "%s is explicit at %s but the full load order has %s",
				e.Extension, e.Version, f.Full.LoadOrder[i].Version)
		}
		wanted[e.Extension] = true
	}
	for _, p := range load {
		if wanted[p.Name] {
			explicit = append(explicit, p)
		}
	}

	state, err := activation.Restore(activation.NewState(c), load, explicit)
	if err != nil {
		return nil, classify(err)
	}
	return state, nil
}

// sparse replays the explicit entries, dependency end first.
func sparse(f *persist.File, current *activation.State, repair bool) (*activation.State, *ImportFailure) {
	if failure := checkFormat(f); failure != nil {
		return nil, failure
	}
	c := current.Catalog
	state := activation.NewState(c)

	for i, e := range f.Sparse.LoadOrder {
		if e.Extension == "" {
			return nil, generic("sparse load order entry %d has no extension name", i+1)
		}
		p, ok := c.Find(e.ID())
		if !ok {
			failure := missing(e.Extension, "%s is not installed", e)
			if s := c.Suggest(e.Extension); len(s) > 0 {
				failure.Message += " (did you mean " + s[0] + "?)"
			}
			return nil, failure
		}
		next, err := activation.Add(state, p, repair)
		if err != nil {
			return nil, classify(err)
		}
		state = next
	}
	return state, nil
}
