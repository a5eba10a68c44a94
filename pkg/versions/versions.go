// Package versions wraps github.com/Masterminds/semver/v3 for extension
// versions and dependency ranges.
package versions

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version. The zero value is the "unknown" version and
// sorts below every parsed version.
type Version struct {
	v   *mm.Version
	raw string
}

// Range is a predicate over versions: a single comparator ("^1.2.0", ">= 2.0.0")
// or a compound range (">=1.2.0 <2.0.0", "1.x || 2.x").
type Range struct {
	c   *mm.Constraints
	raw string
}

func Parse(raw string) (Version, error) {
	trimmed := strings.TrimSpace(raw)
	v, err := mm.NewVersion(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("versions: parse version %q: %w", raw, err)
	}
	return Version{v: v, raw: trimmed}, nil
}

func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseRange parses a dependency range. An empty range matches any version.
func ParseRange(raw string) (Range, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = "*"
	}
	c, err := mm.NewConstraint(trimmed)
	if err != nil {
		return Range{}, fmt.Errorf("versions: parse range %q: %w", raw, err)
	}
	return Range{c: c, raw: trimmed}, nil
}

func MustParseRange(raw string) Range {
	r, err := ParseRange(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// Exact returns the range that only admits v.
func Exact(v Version) Range {
	return MustParseRange("=" + v.String())
}

// String returns the version as it was written in the definition.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.raw
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool { return v.v == nil }

// Equal compares by semantic value, so "1.0" equals "1.0.0".
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

func (r Range) String() string { return r.raw }

// Satisfies reports whether v falls inside r.
func Satisfies(v Version, r Range) bool {
	if v.v == nil || r.c == nil {
		return false
	}
	return r.c.Check(v.v)
}

// SatisfiesAll reports whether v falls inside every range.
func SatisfiesAll(v Version, ranges []Range) bool {
	for _, r := range ranges {
		if !Satisfies(v, r) {
			return false
		}
	}
	return true
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// MaxSatisfying returns the highest version in candidates that satisfies all
// ranges. If multiple versions are equal, the first encountered wins.
func MaxSatisfying(ranges []Range, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !SatisfiesAll(candidate, ranges) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
