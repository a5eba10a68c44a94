// Package types defines the core data model shared by the resolver, the
// activation order manager, the merge engine and import reconciliation.
// This includes Package and its identity, dependencies, and the qualified
// configuration facts a package contributes.
package types
