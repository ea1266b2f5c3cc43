package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles groups the lipgloss styles used for console text.
type Styles struct {
	Info   lipgloss.Style
	Warn   lipgloss.Style
	Error  lipgloss.Style
	Fatal  lipgloss.Style
	Done   lipgloss.Style
	Failed lipgloss.Style
	Bold   lipgloss.Style
	Muted  lipgloss.Style
}

// newStyles binds the styles to a renderer for w so that color output is only
// produced when w is a terminal.
func newStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Info:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		Warn:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#F2C94C")),
		Error:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#EB5757")),
		Fatal:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#C0392B")),
		Done:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#27AE60")),
		Failed: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#EB5757")),
		Bold:   r.NewStyle().Bold(true),
		Muted:  r.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
}
