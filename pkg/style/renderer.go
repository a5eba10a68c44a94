package style

import (
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/extman/pkg/activation"
	"github.com/arthur-debert/extman/pkg/catalog"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/history"
	"github.com/arthur-debert/extman/pkg/merge"
	"github.com/arthur-debert/extman/pkg/reconcile"
	"github.com/arthur-debert/extman/pkg/resolver"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"
)

// Renderer defines the interface for rendering command output
type Renderer interface {
	RenderCatalog(c *catalog.Catalog, s *activation.State, all bool) string
	RenderStatus(s *activation.State, m *merge.MergedConfiguration) string
	RenderConflicts(m *merge.MergedConfiguration) string
	RenderImport(r *reconcile.StrategyReport) string
	RenderHistory(entries []history.Entry) string
	RenderError(err error) string
}

// TerminalRenderer renders with lipgloss and pterm styling, or as plain text
// when built with NewPlainRenderer.
type TerminalRenderer struct {
	styled bool
}

// NewTerminalRenderer creates a styled renderer
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{styled: true}
}

// NewPlainRenderer creates a renderer without any styling
func NewPlainRenderer() *TerminalRenderer {
	return &TerminalRenderer{}
}

// NewRenderer picks the renderer for a resolved format.
func NewRenderer(f Format) Renderer {
	if f == FormatTerminal {
		return NewTerminalRenderer()
	}
	return NewPlainRenderer()
}

func (r *TerminalRenderer) paint(st lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return st.Render(s)
}

func (r *TerminalRenderer) badge(st *pterm.Style, s string) string {
	if !r.styled {
		return s
	}
	return st.Sprint(s)
}

type catalogRow struct {
	name    string
	version string
	status  Status
}

// RenderCatalog lists extensions with their activation role. Without all,
// each name shows only its active version, or its latest when inactive.
func (r *TerminalRenderer) RenderCatalog(c *catalog.Catalog, s *activation.State, all bool) string {
	if c.Len() == 0 {
		return r.paint(MutedStyle, "No extensions found")
	}

	var rows []catalogRow
	for _, name := range c.Names() {
		var pkgs []*types.Package
		switch active, ok := s.ActivePackage(name); {
		case all:
			pkgs = c.Versions(name)
		case ok:
			pkgs = []*types.Package{active}
		default:
			latest, _ := c.Latest(name)
			pkgs = []*types.Package{latest}
		}
		for _, p := range pkgs {
			v := p.Version.String()
			rows = append(rows, catalogRow{name: name, version: v, status: StatusOf(s, name, v)})
		}
	}

	nameW, verW := 0, 0
	for _, row := range rows {
		nameW = max(nameW, len(row.name))
		verW = max(verW, len(row.version))
	}

	var b strings.Builder
	b.WriteString(r.paint(TitleStyle, "Extensions") + "\n")
	for _, row := range rows {
		glyph := r.paint(MutedStyle, IdleGlyph)
		if row.status == StatusExplicit || row.status == StatusDependency {
			glyph = r.paint(SuccessStyle, ActiveGlyph)
		}
		fmt.Fprintf(&b, "  %s %-*s  %-*s  %s\n", glyph, nameW, row.name, verW, row.version,
			r.badge(StatusStyle(row.status), string(row.status)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderStatus shows the active list in display order and a merge summary.
func (r *TerminalRenderer) RenderStatus(s *activation.State, m *merge.MergedConfiguration) string {
	var b strings.Builder
	if len(s.Active) == 0 {
		b.WriteString(r.paint(MutedStyle, "No active extensions") + "\n")
	} else {
		b.WriteString(r.paint(TitleStyle, "Active extensions") + r.paint(MutedStyle, " (display order)") + "\n")
		nameW := 0
		for _, p := range s.Active {
			nameW = max(nameW, len(p.Name))
		}
		for i, p := range s.Active {
			role := StatusDependency
			name := r.paint(DependencyStyle, fmt.Sprintf("%-*s", nameW, p.Name))
			if s.IsExplicit(p.Name) {
				role = StatusExplicit
				name = r.paint(ExplicitStyle, fmt.Sprintf("%-*s", nameW, p.Name))
			}
			fmt.Fprintf(&b, "  %2d. %s  %s  %s", i+1, name, p.Version.String(),
				r.badge(StatusStyle(role), string(role)))
			if role == StatusDependency {
				if req := requiredBy(s.Graph.Constraints(p.Name)); req != "" {
					b.WriteString("  " + r.paint(MutedStyle, "required by "+req))
				}
			}
			b.WriteString("\n")
		}
	}

	if m != nil {
		code := m.StatusCode()
		fmt.Fprintf(&b, "\nConfiguration: %s, %s, %s, %s, %s\n",
			r.badge(MergeStatusStyle(code), MergeStatusLabel(code)),
			plural(len(m.DefinedValues), "value"),
			plural(len(m.Locks), "lock"),
			plural(len(m.Warnings), "warning"),
			plural(len(m.Errors), "error"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderConflicts lists merge errors, warnings and overrides.
func (r *TerminalRenderer) RenderConflicts(m *merge.MergedConfiguration) string {
	if m == nil || (len(m.Errors) == 0 && len(m.Warnings) == 0 && len(m.Overrides) == 0) {
		return r.paint(MutedStyle, "No conflicts")
	}

	var b strings.Builder
	if len(m.Errors) > 0 {
		b.WriteString(r.paint(ErrorStyle, "Errors") + "\n")
		for _, i := range m.Errors {
			fmt.Fprintf(&b, "  %s %s %s: %s\n", r.paint(ErrorStyle, ErrorGlyph),
				r.paint(CodeStyle, i.URL), i.Field, i.Message)
		}
	}
	if len(m.Warnings) > 0 {
		b.WriteString(r.paint(WarningStyle, "Warnings") + "\n")
		for _, i := range m.Warnings {
			fmt.Fprintf(&b, "  %s %s %s: %s\n", r.paint(WarningStyle, WarningGlyph),
				r.paint(CodeStyle, i.URL), i.Field, i.Message)
		}
	}
	if len(m.Overrides) > 0 {
		b.WriteString(r.paint(SubtitleStyle, "Overrides") + "\n")
		for _, name := range m.Overridden() {
			b.WriteString("  " + r.paint(lipgloss.NewStyle().Bold(true), name) + "\n")
			for _, o := range m.Overrides[name] {
				fmt.Fprintf(&b, "    %s %s: %s %s by %s\n",
					r.paint(CodeStyle, o.URL), o.Field,
					o.Overridden, o.Kind, o.Overriding)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderImport shows every attempted strategy and the outcome.
func (r *TerminalRenderer) RenderImport(rep *reconcile.StrategyReport) string {
	var b strings.Builder
	for _, att := range rep.Reports {
		if att.OK() {
			fmt.Fprintf(&b, "  %s %s\n", r.paint(SuccessStyle, SuccessGlyph), att.Strategy)
			continue
		}
		fmt.Fprintf(&b, "  %s %s  %s\n", r.paint(ErrorStyle, ErrorGlyph), att.Strategy,
			r.paint(MutedStyle, att.Failure.Error()))
	}
	if rep.Result == nil {
		b.WriteString(r.paint(ErrorStyle, "Import failed") + "\n")
	} else {
		fmt.Fprintf(&b, "%s with the %s strategy: %d active, %d explicit\n",
			r.paint(SuccessStyle, "Imported"), rep.Result.Strategy,
			len(rep.Result.State.Active), len(rep.Result.State.Explicit))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderHistory lists snapshots newest first.
func (r *TerminalRenderer) RenderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return r.paint(MutedStyle, "No history")
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
			r.paint(MutedStyle, e.ID),
			e.Timestamp.Local().Format(time.DateTime),
			e.Operation,
			r.paint(ExplicitStyle, "["+strings.Join(e.Explicit, ", ")+"]"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderError renders an error message with its code when it has one.
func (r *TerminalRenderer) RenderError(err error) string {
	if err == nil {
		return ""
	}
	code := errors.GetErrorCode(err)
	if !r.styled {
		if code == errors.ErrUnknown {
			return fmt.Sprintf("Error: %s", err.Error())
		}
		return fmt.Sprintf("Error [%s]: %s", code, err.Error())
	}
	if code == errors.ErrUnknown {
		return fmt.Sprintf("%s %s", pterm.Error.Prefix.Text, pterm.Error.MessageStyle.Sprint(err.Error()))
	}
	return fmt.Sprintf("%s [%s] %s",
		pterm.Error.Prefix.Text,
		pterm.Error.MessageStyle.Sprint(code),
		err.Error())
}

// requiredBy lists the packages pulling on a dependency with their ranges.
func requiredBy(cs []resolver.Constraint) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		if !c.Explicit {
			parts = append(parts, c.From.Name+" "+c.Range.String())
		}
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
