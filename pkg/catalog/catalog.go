// Package catalog holds the immutable list of discovered extensions.
package catalog

import (
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/arthur-debert/extman/pkg/versions"
)

// maxSuggestDistance bounds how far a typo may be from a real name.
const maxSuggestDistance = 3

// Catalog is an immutable, name-indexed set of packages. Two packages may
// share a name; (name, version) is unique.
type Catalog struct {
	all    []*types.Package
	byName map[string][]*types.Package
}

// New builds a catalog, rejecting duplicate identities.
func New(pkgs []*types.Package) (*Catalog, error) {
	c := &Catalog{byName: make(map[string][]*types.Package)}
	for _, p := range pkgs {
		if p == nil {
			continue
		}
		for _, existing := range c.byName[p.Name] {
			if existing.Version.Equal(p.Version) {
				return nil, errors.Newf(errors.ErrInvalidInput, "duplicate extension %s", p.ID()).
					WithDetail("extension", p.Name).
					WithDetail("version", p.Version.String())
			}
		}
		c.byName[p.Name] = append(c.byName[p.Name], p)
		c.all = append(c.all, p)
	}
	for name := range c.byName {
		list := c.byName[name]
		sort.SliceStable(list, func(i, j int) bool {
			return versions.Compare(list[i].Version, list[j].Version) > 0
		})
	}
	types.SortByName(c.all)
	return c, nil
}

// MustNew is New for fixtures known to be valid.
func MustNew(pkgs ...*types.Package) *Catalog {
	c, err := New(pkgs)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns every package sorted by name, highest version first.
func (c *Catalog) All() []*types.Package {
	out := make([]*types.Package, len(c.all))
	copy(out, c.all)
	return out
}

// Len returns the number of packages.
func (c *Catalog) Len() int { return len(c.all) }

// Names returns the distinct package names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether any version of name exists.
func (c *Catalog) Has(name string) bool {
	return len(c.byName[name]) > 0
}

// Versions returns every package called name, highest version first.
func (c *Catalog) Versions(name string) []*types.Package {
	list := c.byName[name]
	out := make([]*types.Package, len(list))
	copy(out, list)
	return out
}

// Latest returns the highest version of name.
func (c *Catalog) Latest(name string) (*types.Package, bool) {
	list := c.byName[name]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Find returns the package with exactly this identity. Versions compare
// semantically, so "1.0" finds "1.0.0".
func (c *Catalog) Find(id types.PackageID) (*types.Package, bool) {
	if id.Version == "" {
		return c.Latest(id.Name)
	}
	want, err := versions.Parse(id.Version)
	if err != nil {
		return nil, false
	}
	for _, p := range c.byName[id.Name] {
		if p.Version.Equal(want) {
			return p, true
		}
	}
	return nil, false
}

// Lookup is Find returning a coded error naming the missing extension.
func (c *Catalog) Lookup(id types.PackageID) (*types.Package, error) {
	if p, ok := c.Find(id); ok {
		return p, nil
	}
	err := errors.Newf(errors.ErrExtensionNotFound, "extension %s is not installed", id).
		WithDetail("extension", id.Name)
	if id.Version != "" {
		err.WithDetail("version", id.Version)
	}
	if s := c.Suggest(id.Name); len(s) > 0 {
		err.WithDetail("suggestions", s)
	}
	return nil, err
}

// Suggest returns known names close to name, nearest first.
func (c *Catalog) Suggest(name string) []string {
	type scored struct {
		name string
		dist int
	}
	var hits []scored
	for _, n := range c.Names() {
		if n == name {
			continue
		}
		d := levenshtein.ComputeDistance(name, n)
		if d <= maxSuggestDistance {
			hits = append(hits, scored{n, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}
