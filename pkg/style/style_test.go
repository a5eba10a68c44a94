package style_test

import (
	"os"
	"strings"
	"testing"

	"github.com/arthur-debert/extman/pkg/merge"
	"github.com/arthur-debert/extman/pkg/style"
	"github.com/arthur-debert/extman/pkg/testutil"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestMarkupParser_Plain(t *testing.T) {
	p := style.NewMarkupParser()
	p.SetPlain(true)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single_tag", "[success]Activated[/success] app", "Activated app"},
		{"nested_tags", "[bold][explicit]app[/explicit][/bold]", "app"},
		{"unknown_tag_kept", "[shout]hi[/shout]", "[shout]hi[/shout]"},
		{"multiline", "[muted]a\nb[/muted]", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Render(tt.in))
		})
	}
}

func TestMarkupParser_TemplateAndCustomTag(t *testing.T) {
	p := style.NewMarkupParser()
	p.SetPlain(true)
	p.AddStyle("shout", lipgloss.NewStyle().Bold(true))

	out := p.RenderTemplate("[shout]{{name}}[/shout] moved {{dir}}", map[string]string{"name": "app", "dir": "up"})
	assert.Equal(t, "app moved up", out)
}

func TestMarkupParser_StyledKeepsText(t *testing.T) {
	out := style.NewMarkupParser().Render("[error]failed[/error]")
	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "[error]")
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "Hello", style.Indent("Hello", 0))
	assert.Equal(t, "  Hello", style.Indent("Hello", 1))
	assert.Equal(t, "    Hello", style.Indent("Hello", 2))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    style.Format
		wantErr bool
	}{
		{"", style.FormatAuto, false},
		{"auto", style.FormatAuto, false},
		{"TERM", style.FormatTerminal, false},
		{"terminal", style.FormatTerminal, false},
		{"plain", style.FormatText, false},
		{"json", style.FormatAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := style.ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, "unknown", got.String())
		})
	}
}

func TestResolveFormat(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	assert.Equal(t, style.FormatText, style.ResolveFormat(style.FormatTerminal, f, false), "color off wins")
	assert.Equal(t, style.FormatTerminal, style.ResolveFormat(style.FormatTerminal, f, true))
	assert.Equal(t, style.FormatText, style.ResolveFormat(style.FormatAuto, f, true), "a regular file is not a terminal")

	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, style.FormatText, style.DetectFormat(f))
}

func TestConflictsMarkdown(t *testing.T) {
	lower := testutil.Pkg("lower", "1.0.0").Requires("lower.size", 1).Suggests("lower.mode", "a|b")
	upper := testutil.Pkg("upper", "1.0.0").Dep("lower", "*").Requires("lower.size", 2).Suggests("lower.mode", "c")

	md := style.ConflictsMarkdown(merge.Merge([]*types.Package{upper.Build(), lower.Build()}))

	assert.True(t, strings.HasPrefix(md, "# Configuration conflicts\n"))
	assert.Contains(t, md, "Status: **errors**")
	assert.Contains(t, md, "## Errors")
	assert.Contains(t, md, "## Warnings")
	assert.Contains(t, md, "## Overrides")
	assert.Contains(t, md, "| `lower.size` | value | lower (required 1) | upper (required 2) |")
	assert.Contains(t, md, `lower (suggested a\|b)`, "pipes are escaped inside cells")

	assert.Contains(t, style.ConflictsMarkdown(merge.Merge(nil)), "No conflicts.")
}

func TestGlamourRenderer(t *testing.T) {
	r := &style.GlamourRenderer{Style: "notty", Width: 60}
	out := r.Render("# Title\n\nSome `code` here.\n")

	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "code")
}
