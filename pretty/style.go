package pretty

import "github.com/charmbracelet/lipgloss"

type styles struct {
	typ     lipgloss.Style
	field   lipgloss.Style
	str     lipgloss.Style
	num     lipgloss.Style
	keyword lipgloss.Style
	punct   lipgloss.Style
	err     lipgloss.Style
	note    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		typ:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD866")),
		field:   r.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		str:     r.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		num:     r.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		keyword: r.NewStyle().Foreground(lipgloss.Color("#C39BFF")),
		punct:   r.NewStyle().Foreground(lipgloss.Color("#666666")),
		err:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		note:    r.NewStyle().Italic(true).Foreground(lipgloss.Color("#666666")),
	}
}
