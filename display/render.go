package display

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("2")).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))
)

// RenderPanel renders markdown content inside a titled, bordered panel
// sized to the given terminal width. Markdown rendering failures degrade to
// the raw text; the panel is always produced.
func RenderPanel(title, content string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}

	inner := width - 8 // border + padding
	if inner < 20 {
		inner = 20
	}

	body := renderMarkdown(content, inner)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("◆ " + title))
	b.WriteString("\n")
	b.WriteString(panelStyle.Width(width - 2).Render(body))
	b.WriteString("\n\n")
	return b.String()
}

// RenderNotice formats a one-line warning or informational message.
func RenderNotice(msg string) string {
	return noticeStyle.Render(msg) + "\n"
}

func renderMarkdown(content string, wrap int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
