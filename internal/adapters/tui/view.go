package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/ui/style"
)

const maxPaletteMatches = 5

// View renders the UI.
func (m *Model) View() string {
	if m.ListHeight == 0 {
		return "Initializing..."
	}

	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.projectList(),
		m.detailPane(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar())
}

func (m *Model) projectList() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("PROJECTS") + "\n\n")

	rows := m.Snapshot.Projects
	end := min(m.ListOffset+m.ListHeight, len(rows))
	start := min(m.ListOffset, end)
	for i := start; i < end; i++ {
		s.WriteString(m.renderRow(&rows[i]) + "\n")
	}
	if len(rows) == 0 {
		s.WriteString(mutedStyle.Render("no projects") + "\n")
	}

	return listStyle.Width(max(m.ListWidth-detailBorderWidth, 0)).Render(s.String())
}

func (m *Model) renderRow(p *domain.ProjectView) string {
	cursor := "  "
	if p.ID == m.Snapshot.Cursor {
		cursor = selectedStyle.Render("> ")
	}

	mark := "[ ] "
	if p.Selected {
		mark = "[x] "
	}

	fold := "  "
	if p.Role == domain.RoleWorkspaceRoot {
		fold = style.Folded + " "
		if p.Expanded {
			fold = style.Expanded + " "
		}
	}

	icon, st := statusStyle(p.Status.String())
	if p.Status == domain.ProjectChecking {
		icon = m.spinner.View()
	} else {
		icon = st.Render(icon)
	}

	name := p.Name
	if p.ID == m.Snapshot.Cursor {
		name = selectedStyle.Render(name)
	}

	var suffix []string
	if n := len(p.OutdatedDependencies()); n > 0 {
		suffix = append(suffix, outdatedStyle.Render(fmt.Sprintf("%d", n)))
	}
	if p.ArtifactSize > 0 {
		suffix = append(suffix, mutedStyle.Render(style.Bytes(p.ArtifactSize)))
	}

	row := cursor + mark + strings.Repeat("  ", p.Depth) + fold + icon + " " + name
	if len(suffix) > 0 {
		row += " " + strings.Join(suffix, " ")
	}
	return row
}

func (m *Model) detailPane() string {
	return detailStyle.Render(
		lipgloss.JoinVertical(
			lipgloss.Left,
			m.detailHeader(),
			m.viewport.View(),
		),
	)
}

func (m *Model) detailHeader() string {
	if m.Mode == ModeWizard {
		name := "…"
		if w := m.Snapshot.Wizard; w != nil {
			name = w.Name
		}
		return titleStyle.Render("UPDATES: "+name) + "\n"
	}
	if _, ok := m.activeTab(); ok {
		return m.tabBar() + "\n"
	}
	if row, ok := m.Snapshot.Project(m.Snapshot.Cursor); ok {
		return titleStyle.Render("PROJECT: "+row.Name) + "\n"
	}
	return titleStyle.Render("PROJECT") + "\n"
}

func (m *Model) tabBar() string {
	parts := make([]string, 0, len(m.Snapshot.Tabs))
	for _, t := range m.Snapshot.Tabs {
		label := t.Title
		switch {
		case !t.Finished:
			label = m.spinner.View() + " " + label
		case t.Status.Success():
			label = style.Check + " " + label
		case t.Status.Kind == domain.Terminated:
			label = style.Stop + " " + label
		default:
			label = style.Cross + " " + label
		}
		if t.Index == m.Snapshot.ActiveTab {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// detailContent renders the text scrolled by the viewport.
func (m *Model) detailContent() string {
	if m.Mode == ModeWizard {
		return m.wizardContent()
	}
	if tab, ok := m.activeTab(); ok {
		return tabContent(&tab)
	}
	if row, ok := m.Snapshot.Project(m.Snapshot.Cursor); ok {
		return projectContent(&row)
	}
	return mutedStyle.Render("Select a project.")
}

func tabContent(t *domain.TabView) string {
	var s strings.Builder
	s.WriteString(mutedStyle.Render(t.Header) + "\n")
	for _, line := range t.Lines {
		if line.Stream == domain.Stderr {
			s.WriteString(stderrStyle.Render(line.Text) + "\n")
			continue
		}
		s.WriteString(line.Text + "\n")
	}
	if t.Finished && t.Footer != "" {
		footer := t.Footer
		if t.Status.Success() {
			footer = lipgloss.NewStyle().Foreground(style.Green).Render(footer)
		} else {
			footer = lipgloss.NewStyle().Foreground(style.Red).Render(footer)
		}
		s.WriteString(footer + "\n")
	}
	return s.String()
}

func projectContent(p *domain.ProjectView) string {
	var s strings.Builder

	fmt.Fprintf(&s, "%s\n", mutedStyle.Render(p.Dir()))
	fmt.Fprintf(&s, "role: %s\n", p.Role)
	if p.ArtifactSize > 0 {
		fmt.Fprintf(&s, "target: %s\n", style.Bytes(p.ArtifactSize))
	}
	icon, st := statusStyle(p.Status.String())
	fmt.Fprintf(&s, "status: %s %s\n", st.Render(icon), p.Status)

	if len(p.Members) > 0 {
		fmt.Fprintf(&s, "\nmembers: %d\n", len(p.Members))
	}
	if len(p.Dependencies) == 0 {
		s.WriteString("\n" + mutedStyle.Render("no registry dependencies") + "\n")
		return s.String()
	}

	deps := slices.Clone(p.Dependencies)
	slices.SortStableFunc(deps, func(a, b domain.Dependency) int {
		return strings.Compare(a.Name, b.Name)
	})

	s.WriteString("\n")
	for _, d := range deps {
		s.WriteString(dependencyLine(&d) + "\n")
	}
	return s.String()
}

func dependencyLine(d *domain.Dependency) string {
	switch d.Status {
	case domain.DependencyOutdated:
		line := fmt.Sprintf("%s %s %s %s %s", style.Dot, d.Name, d.LockedVersion, style.Arrow, d.LatestVersion)
		if d.IsMajorUpdate() {
			return majorStyle.Render(line)
		}
		return outdatedStyle.Render(line)
	case domain.DependencyFresh:
		return fmt.Sprintf("%s %s %s", lipgloss.NewStyle().Foreground(style.Green).Render(style.Check), d.Name, d.LockedVersion)
	case domain.DependencyFailed:
		return fmt.Sprintf("%s %s %s %s", lipgloss.NewStyle().Foreground(style.Red).Render(style.Cross), d.Name, d.LockedVersion,
			mutedStyle.Render("failed — will retry"))
	default:
		return mutedStyle.Render(fmt.Sprintf("%s %s %s", style.Circle, d.Name, d.LockedVersion))
	}
}

func (m *Model) wizardContent() string {
	w := m.Snapshot.Wizard
	if w == nil {
		return mutedStyle.Render("Loading…")
	}

	var s strings.Builder
	if w.Checking {
		s.WriteString(m.spinner.View() + " checking\n\n")
	}
	if w.Stale {
		s.WriteString(outdatedStyle.Render(style.Warning+" results changed, press r to refresh") + "\n\n")
	}
	if len(w.Outdated) == 0 {
		s.WriteString(lipgloss.NewStyle().Foreground(style.Green).Render(style.Check+" all dependencies up to date") + "\n")
		return s.String()
	}

	for i, d := range w.Outdated {
		pointer, box := "  ", "[ ]"
		if i == w.Cursor {
			pointer = selectedStyle.Render("> ")
		}
		if w.IsSelected(d.Name) {
			box = "[x]"
		}
		s.WriteString(pointer + box + " " + dependencyLine(&d))
		if note := d.UpdateNote(); note != "" {
			s.WriteString(" " + mutedStyle.Render("("+note+")"))
		}
		s.WriteString("\n")
	}
	return s.String()
}

func (m *Model) statusBar() string {
	if m.Mode == ModePalette {
		return m.paletteBar()
	}
	if m.Notice != "" {
		return lipgloss.NewStyle().Foreground(style.Red).Render(m.Notice)
	}
	if m.Mode == ModeWizard {
		return helpStyle.Render("space select · a all · n none · enter update · r refresh · c recheck · esc back")
	}
	return helpStyle.Render("j/k move · space select · a all · enter expand · r run · c check · C refresh · u updates · tab output · x cancel · q quit")
}

func (m *Model) paletteBar() string {
	parts := []string{m.input.View()}
	for i, match := range m.Matches {
		if i == maxPaletteMatches {
			break
		}
		if i == m.Choice {
			parts = append(parts, selectedStyle.Render(match.Command))
		} else {
			parts = append(parts, mutedStyle.Render(match.Command))
		}
	}
	return strings.Join(parts, "  ")
}
