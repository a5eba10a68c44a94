package style

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// MarkupParser renders [tag]text[/tag] markup with lipgloss styles.
type MarkupParser struct {
	styles   map[string]lipgloss.Style
	patterns map[string]*regexp.Regexp
	plain    bool
}

// NewMarkupParser creates a parser with the default tags.
func NewMarkupParser() *MarkupParser {
	p := &MarkupParser{
		styles:   map[string]lipgloss.Style{},
		patterns: map[string]*regexp.Regexp{},
	}
	for tag, st := range map[string]lipgloss.Style{
		"title":      TitleStyle,
		"subtitle":   SubtitleStyle,
		"success":    SuccessStyle,
		"error":      ErrorStyle,
		"warning":    WarningStyle,
		"info":       InfoStyle,
		"code":       CodeStyle,
		"path":       PathStyle,
		"muted":      MutedStyle,
		"bold":       lipgloss.NewStyle().Bold(true),
		"italic":     lipgloss.NewStyle().Italic(true),
		"explicit":   ExplicitStyle,
		"dependency": DependencyStyle,
		"locked":     LockStyle,
	} {
		p.AddStyle(tag, st)
	}
	return p
}

// AddStyle registers or replaces a tag.
func (p *MarkupParser) AddStyle(tag string, style lipgloss.Style) {
	p.styles[tag] = style
	p.patterns[tag] = regexp.MustCompile(`(?s)\[` + regexp.QuoteMeta(tag) + `\](.*?)\[/` + regexp.QuoteMeta(tag) + `\]`)
}

// SetPlain makes Render strip tags instead of styling them.
func (p *MarkupParser) SetPlain(plain bool) {
	p.plain = plain
}

// Render processes markup text, repeating passes until nested tags are gone.
func (p *MarkupParser) Render(text string) string {
	result := text
	for {
		before := result
		for tag, pattern := range p.patterns {
			st := p.styles[tag]
			result = pattern.ReplaceAllStringFunc(result, func(match string) string {
				sub := pattern.FindStringSubmatch(match)
				if len(sub) != 2 {
					return match
				}
				if p.plain {
					return sub[1]
				}
				return st.Render(sub[1])
			})
		}
		if result == before {
			return result
		}
	}
}

// RenderTemplate substitutes {{key}} placeholders, then renders markup.
func (p *MarkupParser) RenderTemplate(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return p.Render(result)
}

var defaultParser = NewMarkupParser()

// Render uses the default parser.
func Render(text string) string {
	return defaultParser.Render(text)
}

// RenderTemplate uses the default parser.
func RenderTemplate(template string, vars map[string]string) string {
	return defaultParser.RenderTemplate(template, vars)
}

// SetPlain switches the default parser between styled and plain output.
func SetPlain(plain bool) {
	defaultParser.SetPlain(plain)
}
