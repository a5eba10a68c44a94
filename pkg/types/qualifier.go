package types

import (
	"fmt"
	"strings"
)

// Qualifier is the strength of a configuration fact.
type Qualifier int

const (
	Unspecified Qualifier = iota
	Suggested
	Required
)

func (q Qualifier) String() string {
	switch q {
	case Required:
		return "required"
	case Suggested:
		return "suggested"
	default:
		return "unspecified"
	}
}

// Field is the facet of an option a fact speaks about.
type Field string

const (
	FieldValue     Field = "value"
	FieldMin       Field = "min"
	FieldMax       Field = "max"
	FieldValues    Field = "values"
	FieldInclusive Field = "inclusive"
	FieldExclusive Field = "exclusive"
)

// Fields lists every known field in canonical order.
var Fields = []Field{FieldValue, FieldMin, FieldMax, FieldValues, FieldInclusive, FieldExclusive}

func knownField(s string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Fact is one qualified statement about an option, e.g. required-min: 3.
type Fact struct {
	Qualifier Qualifier
	Field     Field
	Content   interface{}
}

// Key renders the fact back to its persisted key ("required-min", "value").
func (f Fact) Key() string {
	return FactKey(f.Qualifier, f.Field)
}

func (f Fact) String() string {
	return fmt.Sprintf("%s=%v", f.Key(), f.Content)
}

// FactKey renders a qualifier and field as a persisted key.
func FactKey(q Qualifier, f Field) string {
	if q == Unspecified {
		return string(f)
	}
	return q.String() + "-" + string(f)
}

// ParseFactKey splits a persisted key into qualifier and field. ok is false
// for keys that are not facts (such as "default" or "contents").
func ParseFactKey(key string) (Qualifier, Field, bool) {
	if f, ok := knownField(key); ok {
		return Unspecified, f, true
	}
	for _, q := range []Qualifier{Required, Suggested} {
		prefix := q.String() + "-"
		if strings.HasPrefix(key, prefix) {
			if f, ok := knownField(strings.TrimPrefix(key, prefix)); ok {
				return q, f, true
			}
		}
	}
	return Unspecified, "", false
}

// Contribution is the set of facts a package asserts for one option url.
type Contribution struct {
	URL   string
	Facts []Fact
}

// Fact returns the fact for field, if present.
func (c Contribution) Fact(field Field) (Fact, bool) {
	for _, f := range c.Facts {
		if f.Field == field {
			return f, true
		}
	}
	return Fact{}, false
}
