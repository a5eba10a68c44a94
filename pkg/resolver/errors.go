package resolver

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/extman/pkg/errors"
)

// Reason classifies why resolution failed.
type Reason string

const (
	// ReasonMissing means no version of a referenced name is installed.
	ReasonMissing Reason = "missing"
	// ReasonUnsatisfiable means versions exist but none meets every constraint.
	ReasonUnsatisfiable Reason = "unsatisfiable"
	// ReasonConflictingTargets means two targets pin different versions of one name.
	ReasonConflictingTargets Reason = "conflicting-targets"
	// ReasonCycle means dependencies form a loop, so no load order exists.
	ReasonCycle Reason = "cycle"
	// ReasonDiverged means version selection kept changing without settling.
	ReasonDiverged Reason = "diverged"
)

// ResolutionError reports why a target set has no consistent version set.
type ResolutionError struct {
	Reason Reason
	// Names are the offending package names.
	Names []string
	// Conflicts are the constraints pulling on the offending names.
	Conflicts []Constraint
	// Available lists installed versions of the offending name, highest first.
	Available []string
	// Cycle is the dependency path that closes on itself, for ReasonCycle.
	Cycle []string
}

func (e *ResolutionError) Error() string {
	switch e.Reason {
	case ReasonMissing:
		return fmt.Sprintf("cannot resolve %s: not installed (%s)", quoteAll(e.Names), describe(e.Conflicts))
	case ReasonUnsatisfiable:
		return fmt.Sprintf("cannot resolve %s: no installed version (%s) satisfies %s",
			quoteAll(e.Names), strings.Join(e.Available, ", "), describe(e.Conflicts))
	case ReasonConflictingTargets:
		return fmt.Sprintf("cannot resolve %s: requested in more than one version (%s)", quoteAll(e.Names), describe(e.Conflicts))
	case ReasonCycle:
		return fmt.Sprintf("cannot order %s: dependency cycle %s", quoteAll(e.Names), strings.Join(e.Cycle, " -> "))
	case ReasonDiverged:
		return fmt.Sprintf("cannot resolve %s: version selection does not settle", quoteAll(e.Names))
	default:
		return fmt.Sprintf("cannot resolve %s", quoteAll(e.Names))
	}
}

// ErrorCode places ResolutionError in the ErrResolution category.
func (e *ResolutionError) ErrorCode() errors.ErrorCode {
	return errors.ErrResolution
}

func quoteAll(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(q, ", ")
}

func describe(cs []Constraint) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, "; ")
}
