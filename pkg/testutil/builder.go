package testutil

import (
	"testing"

	"github.com/arthur-debert/extman/pkg/catalog"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/arthur-debert/extman/pkg/versions"
)

// PackageBuilder assembles a types.Package for tests.
type PackageBuilder struct {
	p *types.Package
}

// Pkg starts a module named name at version.
func Pkg(name, version string) *PackageBuilder {
	return &PackageBuilder{p: &types.Package{
		Name:        name,
		Version:     versions.MustParse(version),
		Kind:        types.KindModule,
		DisplayName: name,
		Defaults:    map[string]interface{}{},
	}}
}

// Plugin marks the package as a plugin.
func (b *PackageBuilder) Plugin() *PackageBuilder {
	b.p.Kind = types.KindPlugin
	return b
}

// Dep appends a dependency on name within rng.
func (b *PackageBuilder) Dep(name, rng string) *PackageBuilder {
	b.p.Dependencies = append(b.p.Dependencies, types.Dependency{
		Name:  name,
		Range: versions.MustParseRange(rng),
	})
	return b
}

// Fact appends a qualified fact for url.
func (b *PackageBuilder) Fact(url string, q types.Qualifier, f types.Field, content interface{}) *PackageBuilder {
	fact := types.Fact{Qualifier: q, Field: f, Content: content}
	for i := range b.p.Contributions {
		if b.p.Contributions[i].URL == url {
			b.p.Contributions[i].Facts = append(b.p.Contributions[i].Facts, fact)
			return b
		}
	}
	b.p.Contributions = append(b.p.Contributions, types.Contribution{URL: url, Facts: []types.Fact{fact}})
	return b
}

// Requires adds a required value for url.
func (b *PackageBuilder) Requires(url string, value interface{}) *PackageBuilder {
	return b.Fact(url, types.Required, types.FieldValue, value)
}

// Suggests adds a suggested value for url.
func (b *PackageBuilder) Suggests(url string, value interface{}) *PackageBuilder {
	return b.Fact(url, types.Suggested, types.FieldValue, value)
}

// Sets adds an unqualified value for url.
func (b *PackageBuilder) Sets(url string, value interface{}) *PackageBuilder {
	return b.Fact(url, types.Unspecified, types.FieldValue, value)
}

// Default declares the fallback value of url.
func (b *PackageBuilder) Default(url string, value interface{}) *PackageBuilder {
	b.p.Defaults[url] = value
	return b
}

// Build returns the package.
func (b *PackageBuilder) Build() *types.Package {
	return b.p
}

// NewCatalog builds a catalog from builders, failing the test on error.
func NewCatalog(t testing.TB, builders ...*PackageBuilder) *catalog.Catalog {
	t.Helper()
	pkgs := make([]*types.Package, len(builders))
	for i, b := range builders {
		pkgs[i] = b.Build()
	}
	c, err := catalog.New(pkgs)
	if err != nil {
		t.Fatalf("invalid test catalog: %v", err)
	}
	return c
}

// ID is shorthand for a package identity.
func ID(name, version string) types.PackageID {
	return types.PackageID{Name: name, Version: version}
}

// IDStrings renders packages as name@version strings.
func IDStrings(pkgs []*types.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.String()
	}
	return out
}
