// Package tui provides the interactive terminal interface for wash.
//
// The model never owns application state. It renders the latest snapshot it
// received and turns key presses into events and actions.
package tui

import (
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/wash/internal/adapters/palette"
	"go.trai.ch/wash/internal/ui/output"
	"go.trai.ch/wash/internal/ui/style"
)

// NewModel creates a model driving actions. A nil w renders to stderr.
func NewModel(actions Actions, pal *palette.Palette, w io.Writer) *Model {
	out := output.New(w)
	lipgloss.SetColorProfile(out.Profile)

	if pal == nil {
		pal = palette.New()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(style.Blue)

	in := textinput.New()
	in.Prompt = ": "
	in.Placeholder = "command"
	in.CharLimit = 128

	return &Model{
		Follow:   true,
		actions:  actions,
		palette:  pal,
		input:    in,
		spinner:  s,
		viewport: viewport.New(0, 0),
		shownTab: -1,
	}
}
