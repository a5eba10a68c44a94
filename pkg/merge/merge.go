// Package merge folds the configuration facts of the active extensions into
// one configuration.
//
// Extensions are processed in load order, so a more dependent extension sees
// the facts of everything it depends on and may override them. Each (url,
// field) pair keeps one winning fact. When a second contributor arrives the
// qualifiers decide:
//
//	existing    incoming    outcome
//	required    suggested   incoming dropped, warning
//	suggested   suggested   incoming wins, warning
//	suggested   required    incoming wins, warning
//	required    required    equal values confirm, differing values are an error
//	                        and the incoming fact is dropped
//
// An unspecified incoming fact ranks like a suggested one. An unspecified
// existing fact yields to anything without a warning.
package merge

import (
	"fmt"
	"reflect"

	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/types"
)

// Layer is a named set of contributions that does not come from a package,
// such as the options the user set by hand.
type Layer struct {
	Name          string
	Contributions []types.Contribution
}

type slot struct {
	url   string
	field types.Field
}

type merger struct {
	out  *MergedConfiguration
	held map[slot]Contributor
}

// Merge folds the contributions of active, given in display order, and then
// of each extra layer in turn. It never fails: conflicts are reported in the
// result.
func Merge(active []*types.Package, layers ...Layer) *MergedConfiguration {
	logger := logging.GetLogger("merge")
	m := &merger{out: newMergedConfiguration(), held: map[slot]Contributor{}}

	load := types.Reversed(active)
	for _, p := range load {
		m.apply(p.Name, p.Contributions)
	}
	for _, l := range layers {
		m.apply(l.Name, l.Contributions)
	}

	for url, fields := range m.out.Facts {
		w, ok := fields[types.FieldValue]
		if !ok {
			continue
		}
		m.out.DefinedValues[url] = w.Fact.Content
		switch w.Fact.Qualifier {
		case types.Required:
			m.out.Locks[url] = Lock{By: w.By, Value: w.Fact.Content}
		case types.Suggested:
			m.out.Suggestions[url] = Suggestion{By: w.By, Value: w.Fact.Content}
		}
	}
	for _, p := range load {
		for url, v := range p.Defaults {
			if _, ok := m.out.DefinedValues[url]; !ok {
				m.out.DefinedValues[url] = v
			}
		}
	}

	logger.Debug().
		Int("packages", len(active)).
		Int("values", len(m.out.DefinedValues)).
		Int("warnings", len(m.out.Warnings)).
		Int("errors", len(m.out.Errors)).
		Msg("Configuration merged")
	return m.out
}

func (m *merger) apply(name string, contributions []types.Contribution) {
	for _, c := range contributions {
		for _, f := range c.Facts {
			m.fold(c.URL, f, Contributor{Name: name, Qualifier: f.Qualifier, Value: f.Content})
		}
	}
}

func (m *merger) fold(url string, f types.Fact, incoming Contributor) {
	key := slot{url: url, field: f.Field}
	existing, ok := m.held[key]
	if !ok || existing.Qualifier == types.Unspecified {
		if ok {
			m.override(Superseded, url, f.Field, existing, incoming)
		}
		m.win(key, f, incoming)
		return
	}

	switch {
	case existing.Qualifier == types.Required && incoming.Qualifier == types.Required:
		if equalValues(existing.Value, incoming.Value) {
			m.override(Confirmed, url, f.Field, existing, incoming)
			m.win(key, f, incoming)
			return
		}
		m.override(Conflict, url, f.Field, incoming, existing)
		m.issue(&m.out.Errors, url, f.Field, existing, incoming,
			fmt.Sprintf("%s and %s are incompatible: both require %s %s (%v vs %v)",
				existing.Name, incoming.Name, url, f.Field, existing.Value, incoming.Value))

	case existing.Qualifier == types.Required:
		m.override(Superseded, url, f.Field, incoming, existing)
		m.issue(&m.out.Warnings, url, f.Field, existing, incoming,
			fmt.Sprintf("%s %s of %s ignored: required by %s", url, f.Field, incoming.Name, existing.Name))

	default:
		m.override(Superseded, url, f.Field, existing, incoming)
		m.issue(&m.out.Warnings, url, f.Field, existing, incoming,
			fmt.Sprintf("%s %s of %s overridden by %s", url, f.Field, existing.Name, incoming.Name))
		m.win(key, f, incoming)
	}
}

func (m *merger) win(key slot, f types.Fact, by Contributor) {
	m.held[key] = by
	fields, ok := m.out.Facts[key.url]
	if !ok {
		fields = map[types.Field]Winner{}
		m.out.Facts[key.url] = fields
	}
	fields[key.field] = Winner{Fact: f, By: by.Name}
}

func (m *merger) override(kind OverrideKind, url string, field types.Field, overridden, overriding Contributor) {
	m.out.Overrides[overridden.Name] = append(m.out.Overrides[overridden.Name], Override{
		Kind:       kind,
		URL:        url,
		Field:      field,
		Overridden: overridden,
		Overriding: overriding,
	})
}

func (m *merger) issue(into *[]Issue, url string, field types.Field, existing, incoming Contributor, msg string) {
	*into = append(*into, Issue{URL: url, Field: field, Existing: existing, Incoming: incoming, Message: msg})
	logger := logging.GetLogger("merge")
	logger.Debug().
		Str("url", url).
		Str("field", string(field)).
		Str("existing", existing.Name).
		Str("incoming", incoming.Name).
		Msg(msg)
}

// equalValues compares decoded values, treating numbers of different Go
// types as equal when they hold the same value.
func equalValues(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
