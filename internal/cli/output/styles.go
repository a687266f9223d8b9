package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for terminal output.
type Styles struct {
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Name    lipgloss.Style
}

// NewStyles builds styles bound to lr, so colors are only emitted when
// lr's writer supports them.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:  lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("9")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("14")),
		Name:    lr.NewStyle().Foreground(lipgloss.Color("13")),
	}
}

// StatusIcon renders the icon for a run or model status.
func (s *Styles) StatusIcon(status string) string {
	switch status {
	case "success", "completed":
		return s.Success.Render("✓")
	case "failed":
		return s.Error.Render("✗")
	case "running":
		return s.Warning.Render("…")
	}
	return s.Muted.Render("-")
}
