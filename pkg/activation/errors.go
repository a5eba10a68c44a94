package activation

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/arthur-debert/extman/pkg/errors"
)

// Kind tells the two dependency error flavours apart.
type Kind int

const (
	// KindInvalid means a computed order breaks dependency-first layout.
	// It indicates a defect, never a user mistake.
	KindInvalid Kind = iota
	// KindMisordered means the explicit priority list cannot be honoured.
	KindMisordered
)

func (k Kind) String() string {
	if k == KindMisordered {
		return "misordered"
	}
	return "invalid"
}

// Pair names two extensions whose relative position is the problem.
type Pair struct {
	// For KindInvalid, First depends on Second but loads before it.
	// For KindMisordered, First was listed above Second but ends up below it.
	First  string
	Second string
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.First, p.Second)
}

// DependencyError reports an ordering violation.
type DependencyError struct {
	Kind  Kind
	Pairs []Pair
}

func (e *DependencyError) Error() string {
	parts := make([]string, len(e.Pairs))
	switch e.Kind {
	case KindMisordered:
		for i, p := range e.Pairs {
			parts[i] = fmt.Sprintf("%s is now placed below %s", p.First, p.Second)
		}
		return "activation order changed: " + strings.Join(parts, "; ")
	default:
		for i, p := range e.Pairs {
			parts[i] = fmt.Sprintf("%s loads before its dependency %s", p.First, p.Second)
		}
		return "invalid load order: " + strings.Join(parts, "; ")
	}
}

// ErrorCode maps the kind onto the coded error categories.
func (e *DependencyError) ErrorCode() errors.ErrorCode {
	if e.Kind == KindMisordered {
		return errors.ErrMisordered
	}
	return errors.ErrDependencyOrder
}

// IsMisordered reports whether err is a misordering the caller may repair.
func IsMisordered(err error) bool {
	var derr *DependencyError
	return stderrors.As(err, &derr) && derr.Kind == KindMisordered
}
