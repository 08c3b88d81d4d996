// Package style provides the colors and icons shared by every wash renderer.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Rust   = lipgloss.Color("#CE422B")
	Slate  = lipgloss.Color("#667085")
	Mist   = lipgloss.Color("#D0D5DD")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
	Blue   = lipgloss.Color("#2E90FA")
)

// Icons.
const (
	Check    = "✓"
	Cross    = "✗"
	Warning  = "!"
	Stop     = "⊘"
	Dot      = "●"
	Circle   = "○"
	Arrow    = "→"
	Expanded = "▾"
	Folded   = "▸"
)

// Status maps a project check status to its icon and color.
func Status(name string) (string, lipgloss.Color) {
	switch name {
	case "checking":
		return Circle, Blue
	case "has-updates":
		return Dot, Yellow
	case "up-to-date":
		return Check, Green
	case "failed":
		return Cross, Red
	default:
		return Circle, Slate
	}
}
