package style

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/extman/pkg/merge"
	"github.com/charmbracelet/glamour"
)

// ConflictsMarkdown renders a merge report as a markdown document.
func ConflictsMarkdown(m *merge.MergedConfiguration) string {
	var b strings.Builder
	b.WriteString("# Configuration conflicts\n\n")
	if m == nil || (len(m.Errors) == 0 && len(m.Warnings) == 0 && len(m.Overrides) == 0) {
		b.WriteString("No conflicts.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Status: **%s**\n\n", MergeStatusLabel(m.StatusCode()))
	issueTable(&b, "Errors", m.Errors)
	issueTable(&b, "Warnings", m.Warnings)

	if len(m.Overrides) > 0 {
		b.WriteString("## Overrides\n\n")
		b.WriteString("| extension | option | field | kind | overridden by |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, name := range m.Overridden() {
			for _, o := range m.Overrides[name] {
				fmt.Fprintf(&b, "| %s | `%s` | %s | %s | %s |\n",
					cell(o.Overridden.String()), o.URL, o.Field, o.Kind, cell(o.Overriding.String()))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func issueTable(b *strings.Builder, title string, issues []merge.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	b.WriteString("| option | field | existing | incoming | message |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, i := range issues {
		fmt.Fprintf(b, "| `%s` | %s | %s | %s | %s |\n",
			i.URL, i.Field, cell(i.Existing.String()), cell(i.Incoming.String()), cell(i.Message))
	}
	b.WriteString("\n")
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// GlamourRenderer renders markdown for the terminal
type GlamourRenderer struct {
	Style string // "dark", "light", "notty", "auto", or path to custom style
	Width int    // word wrap width, 0 keeps glamour's default
}

// NewGlamourRenderer creates a renderer with auto style detection
func NewGlamourRenderer() *GlamourRenderer {
	return &GlamourRenderer{Style: "auto"}
}

// Render returns content rendered by glamour, or content unchanged when
// glamour fails.
func (r *GlamourRenderer) Render(content string) string {
	var options []glamour.TermRendererOption
	switch r.Style {
	case "", "auto":
		options = append(options, glamour.WithAutoStyle())
	case "dark", "light", "notty", "ascii", "dracula", "pink":
		options = append(options, glamour.WithStandardStyle(r.Style))
	default:
		options = append(options, glamour.WithStylePath(r.Style))
	}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
