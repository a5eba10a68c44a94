package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/extman/pkg/versions"
)

// Kind distinguishes the two package flavours. Both participate identically
// in resolution and merge.
type Kind string

const (
	KindModule Kind = "module"
	KindPlugin Kind = "plugin"
)

// Reserved dependency names denote the host application itself. They are
// never resolved against the catalog and never take part in ordering checks.
const (
	ReservedFramework = "framework"
	ReservedFrontend  = "frontend"
)

// IsReserved reports whether name refers to the host application.
func IsReserved(name string) bool {
	return name == ReservedFramework || name == ReservedFrontend
}

// PackageID is the unique identity of a package.
type PackageID struct {
	Name    string
	Version string
}

func (id PackageID) String() string {
	if id.Version == "" {
		return id.Name
	}
	return fmt.Sprintf("%s@%s", id.Name, id.Version)
}

// ParsePackageID splits "name@version". A bare name yields an empty version.
func ParsePackageID(s string) PackageID {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "@"); i > 0 {
		return PackageID{Name: s[:i], Version: s[i+1:]}
	}
	return PackageID{Name: s}
}

// Dependency is one named version-range constraint declared by a package.
type Dependency struct {
	Name  string
	Range versions.Range
}

// Package is an installed extension. Packages are immutable once discovered;
// callers share them by pointer.
type Package struct {
	Name        string
	Version     versions.Version
	Kind        Kind
	DisplayName string
	Author      string

	// Dependencies keep declaration order; ordering of newly required
	// packages follows it.
	Dependencies []Dependency

	// Contributions are the configuration facts this package asserts, on its
	// own options or on other packages' options.
	Contributions []Contribution

	// Defaults maps an option url to the value the package declares for it
	// when nobody contributes a value.
	Defaults map[string]interface{}
}

// ID returns the package identity.
func (p *Package) ID() PackageID {
	return PackageID{Name: p.Name, Version: p.Version.String()}
}

func (p *Package) String() string {
	return p.ID().String()
}

// DependsOn reports whether p directly declares a dependency on name.
func (p *Package) DependsOn(name string) bool {
	for _, d := range p.Dependencies {
		if d.Name == name {
			return true
		}
	}
	return false
}

// OrderedDependencies returns the non-reserved dependencies in declaration
// order.
func (p *Package) OrderedDependencies() []Dependency {
	deps := make([]Dependency, 0, len(p.Dependencies))
	for _, d := range p.Dependencies {
		if IsReserved(d.Name) {
			continue
		}
		deps = append(deps, d)
	}
	return deps
}

// SortByName orders packages by name, then by version descending.
func SortByName(pkgs []*Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].Name != pkgs[j].Name {
			return pkgs[i].Name < pkgs[j].Name
		}
		return versions.Compare(pkgs[i].Version, pkgs[j].Version) > 0
	})
}

// Names returns the names of pkgs in order.
func Names(pkgs []*Package) []string {
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	return names
}

// IDs returns the identities of pkgs in order.
func IDs(pkgs []*Package) []PackageID {
	ids := make([]PackageID, len(pkgs))
	for i, p := range pkgs {
		ids[i] = p.ID()
	}
	return ids
}

// Reversed returns a reversed copy, converting between load order and
// display order.
func Reversed(pkgs []*Package) []*Package {
	out := make([]*Package, len(pkgs))
	for i, p := range pkgs {
		out[len(pkgs)-1-i] = p
	}
	return out
}
