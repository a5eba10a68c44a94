// Package manager serializes state transitions for one catalog.
//
// A Session owns the committed activation state, the user-set options and the
// merge computed from both. Every mutating call runs under one lock, commits
// through the resolver's generation check, re-merges from scratch and, when
// configured, records a history snapshot.
package manager

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/extman/pkg/activation"
	"github.com/arthur-debert/extman/pkg/catalog"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/history"
	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/merge"
	"github.com/arthur-debert/extman/pkg/metrics"
	"github.com/arthur-debert/extman/pkg/persist"
	"github.com/arthur-debert/extman/pkg/reconcile"
	"github.com/arthur-debert/extman/pkg/resolver"
	"github.com/arthur-debert/extman/pkg/types"
)

// Options configure a Session. The zero value works: no history, no metrics,
// user layer "user".
type Options struct {
	UserLayer    string
	History      *history.Store
	HistoryLimit int
	Metrics      *metrics.Recorder
}

// Session is safe for concurrent use; calls are applied one at a time.
type Session struct {
	mu       sync.Mutex
	catalog  *catalog.Catalog
	resolver *resolver.Resolver
	state    *activation.State
	user     []types.Contribution
	merged   *merge.MergedConfiguration
	opts     Options
}

// New starts a session with nothing active.
func New(c *catalog.Catalog, opts Options) *Session {
	if opts.UserLayer == "" {
		opts.UserLayer = reconcile.DefaultUserLayer
	}
	state := activation.NewState(c)
	s := &Session{
		catalog:  c,
		resolver: resolver.FromGraph(state.Graph),
		state:    state,
		opts:     opts,
	}
	s.merged = s.merge(state, nil)
	return s
}

// Catalog returns the session catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// State returns the committed state.
func (s *Session) State() *activation.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Merged returns the merge of the committed state.
func (s *Session) Merged() *merge.MergedConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merged
}

// UserOptions returns the user-set options.
func (s *Session) UserOptions() []types.Contribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Contribution(nil), s.user...)
}

// Activate makes the extension explicit. An empty version picks the latest.
// A misordering with repair false fails with ErrMisordered; the caller may
// confirm with the user and retry with repair.
func (s *Session) Activate(id types.PackageID, repair bool) error {
	return s.ActivateAll([]types.PackageID{id}, repair)
}

// ActivateAll activates ids in order as one transition with one snapshot.
// When any of them fails nothing changes.
func (s *Session) ActivateAll(ids []types.PackageID, repair bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := time.Now()

	err := s.activateAll(ids, repair)
	s.opts.Metrics.Operation("activate", started, err)
	return err
}

func (s *Session) activateAll(ids []types.PackageID, repair bool) error {
	next := s.state
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		p, err := s.catalog.Lookup(id)
		if err != nil {
			return err
		}
		if next, err = activation.Add(next, p, repair); err != nil {
			return err
		}
		labels = append(labels, p.String())
	}
	if next == s.state {
		return nil
	}
	return s.commit(next, s.user, "activate "+strings.Join(labels, " "))
}

// Deactivate drops an explicit extension.
func (s *Session) Deactivate(name string) error {
	return s.DeactivateAll([]string{name})
}

// DeactivateAll drops every name as one transition. When any of them fails
// nothing changes.
func (s *Session) DeactivateAll(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := time.Now()

	next := s.state
	var err error
	for _, name := range names {
		if next, err = activation.Remove(next, name); err != nil {
			break
		}
	}
	if err == nil && next != s.state {
		err = s.commit(next, s.user, "deactivate "+strings.Join(names, " "))
	}
	s.opts.Metrics.Operation("deactivate", started, err)
	return err
}

// Move shifts an active extension one slot. It reports whether anything
// moved.
func (s *Session) Move(name string, d activation.Direction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := time.Now()

	next, moved, err := activation.Move(s.state, name, d)
	if err == nil && moved {
		err = s.commit(next, s.user, fmt.Sprintf("move %s %s", name, d))
	}
	s.opts.Metrics.Operation("move", started, err)
	return moved && err == nil, err
}

// SetOption records a user value for url, replacing any earlier one. The
// first url segment must name an installed extension.
func (s *Session) SetOption(url string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := time.Now()

	err := s.checkURL(url)
	if err == nil {
		user := withoutURL(s.user, url)
		user = append(user, types.Contribution{URL: url, Facts: []types.Fact{{Field: types.FieldValue, Content: value}}})
		err = s.commit(s.state, user, "set "+url)
	}
	s.opts.Metrics.Operation("set", started, err)
	return err
}

// UnsetOption removes the user value for url.
func (s *Session) UnsetOption(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := time.Now()

	user := withoutURL(s.user, url)
	var err error
	if len(user) == len(s.user) {
		err = errors.Newf(errors.ErrNotFound, "no user value for %s", url).WithDetail("url", url)
	} else {
		err = s.commit(s.state, user, "unset "+url)
	}
	s.opts.Metrics.Operation("unset", started, err)
	return err
}

// Import replaces the state with one reconstructed from f and records it in
// history. The report is returned even when every strategy failed.
func (s *Session) Import(f *persist.File, repair bool) (*reconcile.StrategyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restore(f, repair, "import")
}

// Restore is Import without a history snapshot, for reloading the saved
// session state.
func (s *Session) Restore(f *persist.File) (*reconcile.StrategyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restore(f, true, "")
}

// Export serializes the committed state.
func (s *Session) Export() (*persist.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return persist.Export(s.state, s.merged, s.user)
}

// Undo drops the newest history snapshot and restores the one before it.
func (s *Session) Undo() (*history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	started := time.Now()

	entry, err := s.undo()
	s.opts.Metrics.Operation("undo", started, err)
	return entry, err
}

func (s *Session) undo() (*history.Entry, error) {
	if s.opts.History == nil {
		return nil, errors.New(errors.ErrHistory, "history is disabled")
	}
	entries, err := s.opts.History.List(2)
	if err != nil {
		return nil, err
	}
	if len(entries) < 2 {
		return nil, errors.New(errors.ErrNotFound, "nothing to undo")
	}
	latest, previous := entries[0], entries[1]

	f, err := persist.Decode(previous.Document)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrHistory, "snapshot %s is unreadable", previous.ID)
	}
	report := s.reconcile(f, true)
	if report.Result == nil {
		return nil, report.Err()
	}
	if err := s.opts.History.Delete(latest.ID); err != nil {
		return nil, err
	}
	s.resolver = resolver.FromGraph(report.Result.State.Graph)
	s.adopt(report.Result.State, report.Result.User, report.Result.Merged)

	logger := logging.GetLogger("manager")
	logger.Info().
		Str("id", previous.ID).
		Str("undone", latest.Operation).
		Msg("Restored previous snapshot")
	return &previous, nil
}

func (s *Session) reconcile(f *persist.File, repair bool) *reconcile.StrategyReport {
	report := reconcile.AttemptStrategies(f, s.state, repair, reconcile.WithUserLayer(s.opts.UserLayer))
	for _, r := range report.Reports {
		s.opts.Metrics.Import(string(r.Strategy), r.OK())
	}
	return report
}

// restore replaces the state from f. With a label the result is recorded in
// history first and the session is left untouched when recording fails.
func (s *Session) restore(f *persist.File, repair bool, label string) (*reconcile.StrategyReport, error) {
	started := time.Now()
	report := s.reconcile(f, repair)
	if report.Result == nil {
		err := report.Err()
		s.opts.Metrics.Operation("import", started, err)
		return report, err
	}

	res := report.Result
	if label != "" {
		if err := s.record(res.State, res.User, res.Merged, label); err != nil {
			s.opts.Metrics.Operation("import", started, err)
			return report, err
		}
	}
	s.resolver = resolver.FromGraph(res.State.Graph)
	s.adopt(res.State, res.User, res.Merged)
	s.opts.Metrics.Operation("import", started, nil)
	return report, nil
}

// commit adopts next and user once the resolver accepts next and the
// snapshot is recorded. On error nothing changes.
func (s *Session) commit(next *activation.State, user []types.Contribution, label string) error {
	advance := next.Graph != s.resolver.Graph()
	if advance {
		if err := s.resolver.Check(next.Graph); err != nil {
			return err
		}
	}
	merged := s.merge(next, user)
	if err := s.record(next, user, merged, label); err != nil {
		return err
	}
	if advance {
		if err := s.resolver.Commit(next.Graph); err != nil {
			return err
		}
	}
	s.adopt(next, user, merged)

	logger := logging.GetLogger("manager")
	logger.Debug().
		Str("operation", label).
		Uint64("generation", next.Graph.Generation()).
		Int("status", merged.StatusCode()).
		Msg("State committed")
	return nil
}

func (s *Session) adopt(state *activation.State, user []types.Contribution, merged *merge.MergedConfiguration) {
	s.state = state
	s.user = user
	s.merged = merged
	s.opts.Metrics.State(len(state.Active), len(state.Explicit), len(merged.Warnings), len(merged.Errors))
	s.prune()
}

func (s *Session) merge(state *activation.State, user []types.Contribution) *merge.MergedConfiguration {
	if len(user) == 0 {
		return merge.Merge(state.Active)
	}
	return merge.Merge(state.Active, merge.Layer{Name: s.opts.UserLayer, Contributions: user})
}

// record stores a history snapshot of a candidate state.
func (s *Session) record(state *activation.State, user []types.Contribution, merged *merge.MergedConfiguration, label string) error {
	if s.opts.History == nil {
		return nil
	}
	f, err := persist.Export(state, merged, user)
	if err != nil {
		return err
	}
	doc, err := persist.Encode(f)
	if err != nil {
		return err
	}
	return s.opts.History.Record(history.NewEntry(label, types.Names(state.Explicit), doc))
}

// prune trims history after a commit. The state change already stands, so a
// failure is only logged.
func (s *Session) prune() {
	if s.opts.History == nil || s.opts.HistoryLimit <= 0 {
		return
	}
	if _, err := s.opts.History.Prune(s.opts.HistoryLimit); err != nil {
		logger := logging.GetLogger("manager")
		logger.Warn().Err(err).Msg("Cannot prune history")
	}
}

func (s *Session) checkURL(url string) error {
	name, _, ok := strings.Cut(url, ".")
	if !ok || name == "" {
		return errors.Newf(errors.ErrInvalidInput, "option %q must start with an extension name", url).
			WithDetail("url", url)
	}
	if !s.catalog.Has(name) {
		err := errors.Newf(errors.ErrExtensionNotFound, "option %q belongs to unknown extension %s", url, name).
			WithDetail("url", url).
			WithDetail("extension", name)
		if sug := s.catalog.Suggest(name); len(sug) > 0 {
			err.WithDetail("suggestions", sug)
		}
		return err
	}
	return nil
}

func withoutURL(contribs []types.Contribution, url string) []types.Contribution {
	out := make([]types.Contribution, 0, len(contribs))
	for _, c := range contribs {
		if c.URL != url {
			out = append(out, c)
		}
	}
	return out
}
