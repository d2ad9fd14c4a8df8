// ABOUTME: Lipgloss styles for the authentication overlay panel
// ABOUTME: Built once; colors are 256-palette indices that read on dark and light backgrounds

package authui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	Panel   lipgloss.Style
	Title   lipgloss.Style
	Muted   lipgloss.Style
	URL     lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Key     lipgloss.Style
}

var styleOnce = sync.OnceValue(func() styles {
	return styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		URL:     lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("39")),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Key:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220")),
	}
})
