// Package activation maintains the ordered set of active extensions.
//
// # Orders
//
// State.Active is kept in display order: the most dependent extension comes
// first and everything it depends on follows it. The reverse is load order,
// which is what the resolver and the merge engine consume.
//
// # Placement
//
// After every change the closure reported by the resolver is laid out by
// replaying activation one extension at a time:
//
//  1. The previous load order is walked first, so extensions that were
//     already active keep their relative position.
//  2. Newly explicit extensions follow, most recently added last.
//
// Placing an extension first places each of its dependencies, in the order
// the extension declares them. An extension that is still unplaced when a
// dependent needs it therefore lands immediately before that dependent.
//
// # Misordering
//
// The explicit list is the user's stated priority. When the placed order
// cannot honour that list, for example because an explicit extension turns
// out to be a dependency of one listed after it, the change is misordered.
// Add reports this as a DependencyError unless repair is requested, in which
// case the computed order is adopted and the explicit list follows it.
package activation
