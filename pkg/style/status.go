package style

import (
	"github.com/arthur-debert/extman/pkg/activation"
	"github.com/arthur-debert/extman/pkg/merge"
	"github.com/pterm/pterm"
)

// Status is the activation role of one extension version.
type Status string

const (
	StatusExplicit   Status = "explicit"   // chosen by the user
	StatusDependency Status = "dependency" // pulled in by an explicit extension
	StatusInstalled  Status = "installed"  // available, not active
	StatusShadowed   Status = "shadowed"   // another version of the name is active
)

// StatusOf classifies the version of name at version within s.
func StatusOf(s *activation.State, name, version string) Status {
	active, ok := s.ActivePackage(name)
	switch {
	case !ok:
		return StatusInstalled
	case active.Version.String() != version:
		return StatusShadowed
	case s.IsExplicit(name):
		return StatusExplicit
	default:
		return StatusDependency
	}
}

// StatusStyle returns the pterm badge style for a status
func StatusStyle(status Status) *pterm.Style {
	switch status {
	case StatusExplicit:
		return pterm.NewStyle(pterm.FgMagenta, pterm.Bold)
	case StatusDependency:
		return pterm.NewStyle(pterm.FgCyan)
	case StatusShadowed:
		return pterm.NewStyle(pterm.FgYellow)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// MergeStatusLabel names a merge status code.
func MergeStatusLabel(code int) string {
	switch code {
	case merge.StatusOK:
		return "ok"
	case merge.StatusWarnings:
		return "warnings"
	default:
		return "errors"
	}
}

// MergeStatusStyle returns the pterm style for a merge status code.
func MergeStatusStyle(code int) *pterm.Style {
	switch code {
	case merge.StatusOK:
		return pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	case merge.StatusWarnings:
		return pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	default:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	}
}
