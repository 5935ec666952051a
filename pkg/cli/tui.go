package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color scheme of terminal panels.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Alert   lipgloss.Color
}

var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Alert:   lipgloss.Color("#ff5f5f"),
}

// Styles are derived from a Theme.
type Styles struct {
	Title  lipgloss.Style
	Key    lipgloss.Style
	Value  lipgloss.Style
	Dim    lipgloss.Style
	Alert  lipgloss.Style
	Border lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Key:    lipgloss.NewStyle().Foreground(t.Dim),
		Value:  lipgloss.NewStyle(),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
		Alert:  lipgloss.NewStyle().Bold(true).Foreground(t.Alert),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
	}
}

// Field is one key/value row of a Panel.
type Field struct {
	Key   string
	Value string
}

// Panel is a bordered box summarizing a call: a title, a status line, a
// table of fields and the tail of the transcript.
type Panel struct {
	Styles Styles
	Title  string
	Status string
	// Failed renders the status in the alert color.
	Failed bool
	Fields []Field
	Lines  []string
	// MaxLines keeps only the last lines of Lines. Zero keeps all.
	MaxLines int
	// Width wraps content. Zero disables wrapping.
	Width int
}

// Render returns the panel as a string.
func (p Panel) Render() string {
	var b strings.Builder

	status := p.Styles.Dim.Render("[" + p.Status + "]")
	if p.Failed {
		status = p.Styles.Alert.Render("[" + p.Status + "]")
	}
	b.WriteString(p.Styles.Title.Render(p.Title))
	if p.Status != "" {
		b.WriteString(" " + status)
	}

	keyWidth := 0
	for _, f := range p.Fields {
		keyWidth = max(keyWidth, lipgloss.Width(f.Key))
	}
	for _, f := range p.Fields {
		key := f.Key + strings.Repeat(" ", keyWidth-lipgloss.Width(f.Key))
		b.WriteString("\n" + p.Styles.Key.Render(key) + "  " + p.Styles.Value.Render(f.Value))
	}

	lines := p.Lines
	if p.MaxLines > 0 && len(lines) > p.MaxLines {
		lines = lines[len(lines)-p.MaxLines:]
	}
	if len(lines) > 0 {
		b.WriteString("\n")
		for _, l := range lines {
			if p.Width > 4 && lipgloss.Width(l) > p.Width-4 {
				l = truncateString(l, p.Width-5) + "…"
			}
			b.WriteString("\n" + l)
		}
	}

	style := p.Styles.Border
	if p.Width > 0 {
		style = style.Width(p.Width - 2)
	}
	return style.Render(b.String())
}

// truncateString cuts s to at most width display cells.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	w := 0
	for i, r := range runes {
		rw := lipgloss.Width(string(r))
		if w+rw > width {
			return string(runes[:i])
		}
		w += rw
	}
	return s
}
