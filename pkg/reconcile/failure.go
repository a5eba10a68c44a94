package reconcile

import (
	stderrors "errors"
	"fmt"

	"github.com/arthur-debert/extman/pkg/activation"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/resolver"
)

// ImportFailure explains why one strategy could not reproduce a file.
type ImportFailure struct {
	// Code is ErrImportGeneric, ErrImportMissingDependencies or
	// ErrImportMissingOrWrongOrder.
	Code    errors.ErrorCode
	Message string
	// Extension names the first offending extension, when there is one.
	Extension string
	Cause     error
}

func (f *ImportFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *ImportFailure) Unwrap() error { return f.Cause }

// ErrorCode returns the failure category.
func (f *ImportFailure) ErrorCode() errors.ErrorCode { return f.Code }

// DependencyRelated reports whether another strategy may still succeed.
func (f *ImportFailure) DependencyRelated() bool {
	return f.Code == errors.ErrImportMissingDependencies || f.Code == errors.ErrImportMissingOrWrongOrder
}

func generic(format string, args ...interface{}) *ImportFailure {
	return &ImportFailure{Code: errors.ErrImportGeneric, Message: fmt.Sprintf(format, args...)}
}

func missing(ext, format string, args ...interface{}) *ImportFailure {
	return &ImportFailure{
		Code:      errors.ErrImportMissingDependencies,
		Message:   fmt.Sprintf(format, args...),
		Extension: ext,
	}
}

func wrongOrder(ext, format string, args ...interface{}) *ImportFailure {
	return &ImportFailure{
		Code:      errors.ErrImportMissingOrWrongOrder,
		Message:   fmt.Sprintf(format, args...),
		Extension: ext,
	}
}

// classify maps an activation or resolution error onto a failure.
func classify(err error) *ImportFailure {
	var rerr *resolver.ResolutionError
	if stderrors.As(err, &rerr) {
		f := missing("", "%v", rerr)
		if len(rerr.Names) > 0 {
			f.Extension = rerr.Names[0]
		}
		f.Cause = err
		return f
	}
	var derr *activation.DependencyError
	if stderrors.As(err, &derr) {
		f := wrongOrder("", "%v", derr)
		if len(derr.Pairs) > 0 {
			f.Extension = derr.Pairs[0].Second
		}
		f.Cause = err
		return f
	}
	if errors.IsErrorCode(err, errors.ErrDependencyOrder) {
		f := wrongOrder("", "%v", err)
		if ext, ok := errors.GetErrorDetails(err)["extension"].(string); ok {
			f.Extension = ext
		}
		f.Cause = err
		return f
	}
	f := generic("%v", err)
	f.Cause = err
	return f
}
