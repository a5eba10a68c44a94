// Package testutil provides fixtures for testing extman components.
//
// Key components:
//   - PackageBuilder: declarative package setup (dependencies, facts, defaults)
//   - NewCatalog: catalog construction that fails the test on invalid input
//   - UCPChain: the eight-extension chain used by import and activation tests
//   - WriteTree: lays out extension directories on an afero filesystem
//   - WriteFile, ReadFile, FileExists: single-file helpers on afero
//
// Usage guidelines:
//   - Catalog tests should use in-memory filesystems (afero.NewMemMapFs)
//   - All test data should be defined inline, not in external files
//   - Each test should be completely isolated with no shared state
package testutil
