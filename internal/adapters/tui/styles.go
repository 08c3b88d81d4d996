package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/wash/internal/ui/style"
)

var (
	colorWhite = lipgloss.Color("#FFFFFF")

	// Pane Styles.
	listStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(style.Slate).
			MarginRight(1).
			PaddingRight(1)

	detailStyle = lipgloss.NewStyle().
			PaddingLeft(1)

	// Header Styles.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(style.Rust).
			Foreground(colorWhite)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(style.Slate)

	activeTabStyle = tabStyle.
			Foreground(colorWhite).
			Background(style.Slate).
			Bold(true)

	// Row Styles.
	selectedStyle = lipgloss.NewStyle().
			Foreground(style.Rust).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(style.Slate)

	stderrStyle = lipgloss.NewStyle().
			Foreground(style.Mist)

	outdatedStyle = lipgloss.NewStyle().
			Foreground(style.Yellow)

	majorStyle = lipgloss.NewStyle().
			Foreground(style.Red)

	helpStyle = lipgloss.NewStyle().
			Foreground(style.Slate).
			Faint(true)
)

func statusStyle(name string) (string, lipgloss.Style) {
	icon, color := style.Status(name)
	return icon, lipgloss.NewStyle().Foreground(color)
}
