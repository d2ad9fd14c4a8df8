// ABOUTME: Fixes the lipgloss background before Bubble Tea's init() can query the terminal
// ABOUTME: Imported with _ by cmd/player2 ahead of the auth overlay

package termfix

import "github.com/charmbracelet/lipgloss"

func init() {
	// With an explicit background, Bubble Tea's init skips the OSC 10/11
	// query whose late reply would land in the login prompt's input.
	// This package must not import bubbletea, directly or transitively,
	// or the init order no longer holds.
	lipgloss.SetHasDarkBackground(true)
}
