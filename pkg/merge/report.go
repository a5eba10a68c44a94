package merge

import (
	"fmt"
	"sort"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/types"
)

// Status codes returned by StatusCode.
const (
	StatusOK       = 0
	StatusWarnings = 1
	StatusErrors   = 2
)

// Contributor is one package's fact on one (url, field) pair.
type Contributor struct {
	Name      string
	Qualifier types.Qualifier
	Value     interface{}
}

func (c Contributor) String() string {
	return fmt.Sprintf("%s (%s %v)", c.Name, c.Qualifier, c.Value)
}

// Winner is the fact that survived the merge for one (url, field) pair.
type Winner struct {
	Fact types.Fact
	By   string
}

// OverrideKind distinguishes why a contribution was superseded.
type OverrideKind string

const (
	// Superseded means the overriding fact won on qualifier strength or
	// priority.
	Superseded OverrideKind = "superseded"
	// Confirmed means two required facts agreed.
	Confirmed OverrideKind = "confirmed"
	// Conflict means two required facts disagreed and the overridden one was
	// dropped.
	Conflict OverrideKind = "conflict"
)

// Override records that a contribution lost to another one.
type Override struct {
	Kind       OverrideKind
	URL        string
	Field      types.Field
	Overridden Contributor
	Overriding Contributor
}

// Issue is a warning or an error raised while merging.
type Issue struct {
	URL      string
	Field    types.Field
	Existing Contributor
	Incoming Contributor
	Message  string
}

// Err renders the issue as a coded error carrying both contributors.
func (i Issue) Err() *errors.ExtmanError {
	return errors.New(errors.ErrMergeConflict, i.Message).
		WithDetail("url", i.URL).
		WithDetail("field", string(i.Field)).
		WithDetail("existing", i.Existing.Name).
		WithDetail("incoming", i.Incoming.Name)
}

// Lock is a url pinned by a required value.
type Lock struct {
	By    string
	Value interface{}
}

// Suggestion is a url whose value was suggested.
type Suggestion struct {
	By    string
	Value interface{}
}

// MergedConfiguration is the result of one merge. It is recomputed from
// scratch whenever the active set changes.
type MergedConfiguration struct {
	DefinedValues map[string]interface{}
	Locks         map[string]Lock
	Suggestions   map[string]Suggestion
	Warnings      []Issue
	Errors        []Issue
	// Overrides are keyed by the name of the overridden package.
	Overrides map[string][]Override
	// Facts holds every winning fact by url and field.
	Facts map[string]map[types.Field]Winner
}

func newMergedConfiguration() *MergedConfiguration {
	return &MergedConfiguration{
		DefinedValues: map[string]interface{}{},
		Locks:         map[string]Lock{},
		Suggestions:   map[string]Suggestion{},
		Overrides:     map[string][]Override{},
		Facts:         map[string]map[types.Field]Winner{},
	}
}

// StatusCode is 0 without issues, 1 with warnings only and 2 with errors.
func (m *MergedConfiguration) StatusCode() int {
	switch {
	case len(m.Errors) > 0:
		return StatusErrors
	case len(m.Warnings) > 0:
		return StatusWarnings
	default:
		return StatusOK
	}
}

// Value returns the defined value of url.
func (m *MergedConfiguration) Value(url string) (interface{}, bool) {
	v, ok := m.DefinedValues[url]
	return v, ok
}

// URLs returns every url with a defined value, sorted.
func (m *MergedConfiguration) URLs() []string {
	out := make([]string, 0, len(m.DefinedValues))
	for url := range m.DefinedValues {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}

// Overridden returns the names that lost at least one contribution, sorted.
func (m *MergedConfiguration) Overridden() []string {
	out := make([]string, 0, len(m.Overrides))
	for name := range m.Overrides {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
