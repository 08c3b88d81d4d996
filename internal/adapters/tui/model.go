package tui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/wash/internal/adapters/palette"
	"go.trai.ch/wash/internal/core/domain"
)

const (
	listWidthRatio    = 0.3
	detailBorderWidth = 4
	statusBarHeight   = 1
)

// Mode is the input mode of the interface.
type Mode uint8

const (
	// ModeNormal navigates the project list.
	ModeNormal Mode = iota
	// ModePalette reads a command to run.
	ModePalette
	// ModeWizard shows the locked update view of one project.
	ModeWizard
)

func (m Mode) String() string {
	switch m {
	case ModePalette:
		return "palette"
	case ModeWizard:
		return "wizard"
	default:
		return "normal"
	}
}

// MsgSnapshot delivers a newly published state snapshot.
type MsgSnapshot struct {
	Snapshot domain.Snapshot
}

// MsgNotice shows a one-line message in the status bar.
type MsgNotice struct {
	Text string
}

// Actions is the application surface driven by key presses.
type Actions interface {
	// Publish forwards a view event to the state synchronizer.
	Publish(ev domain.Event)
	// Run starts cmd on the given projects.
	Run(cmd domain.Command, selected []domain.ProjectID) error
	// Check enqueues user-priority freshness checks.
	Check(ids []domain.ProjectID, force bool)
	// CancelTab stops the run shown in a tab.
	CancelTab(tab int)
}

// Model is the Bubble Tea model rendering state snapshots.
type Model struct {
	Snapshot domain.Snapshot
	Mode     Mode
	Matches  []palette.Match
	Choice   int
	Notice   string

	ListHeight   int
	ListOffset   int
	ListWidth    int
	DetailWidth  int
	DetailHeight int
	// Follow keeps the output pane pinned to the newest line.
	Follow bool
	// ShowProject shows the cursor project instead of the active tab.
	ShowProject bool

	actions  Actions
	palette  *palette.Palette
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	shownTab int
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case MsgSnapshot:
		return m.handleSnapshot(msg)
	case MsgNotice:
		m.Notice = msg.Text
	}
	return m, nil
}

func (m *Model) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.ListWidth = int(float64(msg.Width) * listWidthRatio)
	m.DetailWidth = msg.Width - m.ListWidth - detailBorderWidth

	fullHeader := titleStyle.Render("PROJECTS") + "\n\n"
	m.ListHeight = max(1, msg.Height-lipgloss.Height(fullHeader)-statusBarHeight)
	m.DetailHeight = m.ListHeight

	m.viewport.Width = m.DetailWidth
	m.viewport.Height = m.DetailHeight
	m.ensureVisible()
	m.refreshDetail()
	return m, nil
}

func (m *Model) handleSnapshot(msg MsgSnapshot) (tea.Model, tea.Cmd) {
	if len(msg.Snapshot.Tabs) > len(m.Snapshot.Tabs) {
		m.ShowProject = false
		m.Follow = true
	}
	m.Snapshot = msg.Snapshot
	m.ensureVisible()
	m.refreshDetail()
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	m.Notice = ""

	switch m.Mode {
	case ModePalette:
		return m.handlePaletteKey(msg)
	case ModeWizard:
		return m.handleWizardKey(msg)
	default:
		return m.handleNormalKey(msg)
	}
}

//nolint:cyclop // one case per binding
func (m *Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "k", "up":
		m.moveCursor(-1)
	case "j", "down":
		m.moveCursor(1)
	case " ":
		m.toggleSelection()
	case "a":
		m.toggleAll()
	case "enter", "l", "right", "h", "left":
		m.toggleExpand(msg.String())
	case ":", "r":
		return m.openPalette()
	case "c":
		m.actions.Check(m.targets(), false)
	case "C":
		m.actions.Check(m.targets(), true)
	case "u":
		m.openWizard()
	case "tab":
		m.cycleTab(1)
	case "shift+tab":
		m.cycleTab(-1)
	case "x":
		if _, ok := m.Snapshot.Tab(m.Snapshot.ActiveTab); ok {
			m.actions.CancelTab(m.Snapshot.ActiveTab)
		}
	case "esc":
		m.ShowProject = true
		m.refreshDetail()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.Follow = m.viewport.AtBottom()
		return m, cmd
	}
	return m, nil
}

func (m *Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		return m, nil
	case "up", "ctrl+p":
		if m.Choice > 0 {
			m.Choice--
		}
		return m, nil
	case "down", "ctrl+n", "tab":
		if m.Choice < len(m.Matches)-1 {
			m.Choice++
		}
		return m, nil
	case "enter":
		m.runPalette()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.Matches = m.palette.Filter(m.input.Value())
	m.Choice = 0
	return m, cmd
}

func (m *Model) handleWizardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "u":
		m.actions.Publish(domain.ViewUnlocked{})
		m.Mode = ModeNormal
		m.refreshDetail()
	case "r":
		m.actions.Publish(domain.ViewRefreshed{})
	case "c":
		if w := m.Snapshot.Wizard; w != nil {
			m.actions.Check([]domain.ProjectID{w.Project}, true)
		}
	case "k", "up":
		m.moveWizardCursor(-1)
	case "j", "down":
		m.moveWizardCursor(1)
	case " ":
		m.toggleUpdate()
	case "a":
		m.selectUpdates(true)
	case "n":
		m.selectUpdates(false)
	case "enter":
		if w := m.Snapshot.Wizard; w != nil {
			if cmd, ok := w.UpdateCommand(); ok {
				m.run(cmd, []domain.ProjectID{w.Project})
			}
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// wizard returns a private copy of the wizard view for optimistic edits.
func (m *Model) wizard() (*domain.WizardView, bool) {
	if m.Snapshot.Wizard == nil || len(m.Snapshot.Wizard.Outdated) == 0 {
		return nil, false
	}
	w := *m.Snapshot.Wizard
	w.Selected = slices.Clone(w.Selected)
	m.Snapshot.Wizard = &w
	return &w, true
}

// moveWizardCursor moves through the outdated dependencies, wrapping at both ends.
func (m *Model) moveWizardCursor(delta int) {
	w, ok := m.wizard()
	if !ok {
		return
	}
	n := len(w.Outdated)
	w.Cursor = ((w.Cursor+delta)%n + n) % n
	m.actions.Publish(domain.WizardCursorMoved{Index: w.Cursor})
	m.refreshDetail()
}

func (m *Model) toggleUpdate() {
	w, ok := m.wizard()
	if !ok || w.Cursor >= len(w.Outdated) {
		return
	}
	name := w.Outdated[w.Cursor].Name
	var sel []string
	for _, d := range w.Outdated {
		if (d.Name == name) != w.IsSelected(d.Name) {
			sel = append(sel, d.Name)
		}
	}
	m.setUpdates(w, sel)
}

func (m *Model) selectUpdates(all bool) {
	w, ok := m.wizard()
	if !ok {
		return
	}
	var sel []string
	if all {
		for _, d := range w.Outdated {
			sel = append(sel, d.Name)
		}
	}
	m.setUpdates(w, sel)
}

func (m *Model) setUpdates(w *domain.WizardView, names []string) {
	w.Selected = names
	m.actions.Publish(domain.UpdatesSelected{Names: slices.Clone(names)})
	m.refreshDetail()
}

func (m *Model) cursorIndex() int {
	for i, p := range m.Snapshot.Projects {
		if p.ID == m.Snapshot.Cursor {
			return i
		}
	}
	return 0
}

func (m *Model) moveCursor(delta int) {
	rows := m.Snapshot.Projects
	if len(rows) == 0 {
		return
	}
	idx := min(max(m.cursorIndex()+delta, 0), len(rows)-1)
	id := rows[idx].ID
	if id == m.Snapshot.Cursor {
		return
	}

	m.Snapshot.Cursor = id
	m.ShowProject = true
	m.actions.Publish(domain.CursorMoved{Project: id})
	m.ensureVisible()
	m.refreshDetail()
}

func (m *Model) toggleSelection() {
	id := m.Snapshot.Cursor
	if id == "" {
		return
	}
	sel := slices.Clone(m.Snapshot.Selected)
	if i := slices.Index(sel, id); i >= 0 {
		sel = slices.Delete(sel, i, i+1)
	} else {
		sel = append(sel, id)
	}
	m.setSelection(sel)
}

func (m *Model) toggleAll() {
	var sel []domain.ProjectID
	if len(m.Snapshot.Selected) < len(m.Snapshot.Projects) {
		for _, p := range m.Snapshot.Projects {
			sel = append(sel, p.ID)
		}
	}
	m.setSelection(sel)
}

func (m *Model) setSelection(sel []domain.ProjectID) {
	if sel == nil {
		sel = []domain.ProjectID{}
	}
	m.Snapshot.Selected = sel
	m.actions.Publish(domain.SelectionChanged{Selected: sel})
}

func (m *Model) toggleExpand(key string) {
	row, ok := m.Snapshot.Project(m.Snapshot.Cursor)
	if !ok || row.Role != domain.RoleWorkspaceRoot {
		return
	}
	switch key {
	case "h", "left":
		if !row.Expanded {
			return
		}
	case "l", "right":
		if row.Expanded {
			return
		}
	}
	m.actions.Publish(domain.ExpandToggled{Project: row.ID})
}

// targets returns the selection, or the cursor project when nothing is selected.
func (m *Model) targets() []domain.ProjectID {
	if len(m.Snapshot.Selected) > 0 {
		return slices.Clone(m.Snapshot.Selected)
	}
	if m.Snapshot.Cursor == "" {
		return nil
	}
	return []domain.ProjectID{m.Snapshot.Cursor}
}

func (m *Model) openPalette() (tea.Model, tea.Cmd) {
	m.Mode = ModePalette
	m.input.SetValue("")
	m.Matches = m.palette.Filter("")
	m.Choice = 0
	return m, m.input.Focus()
}

func (m *Model) closePalette() {
	m.input.Blur()
	m.input.SetValue("")
	m.Matches = nil
	m.Choice = 0
	m.Mode = ModeNormal
}

func (m *Model) runPalette() {
	typed := strings.TrimSpace(m.input.Value())
	var (
		cmd domain.Command
		err error
	)
	switch {
	case (typed == "" || m.Choice > 0) && m.Choice < len(m.Matches):
		cmd, err = domain.ParseCommand(m.Matches[m.Choice].Command)
	default:
		cmd, err = m.palette.Resolve(typed)
	}
	m.closePalette()
	if err != nil {
		m.Notice = err.Error()
		return
	}
	m.run(cmd, m.targets())
}

func (m *Model) run(cmd domain.Command, ids []domain.ProjectID) {
	if err := m.actions.Run(cmd, ids); err != nil {
		m.Notice = err.Error()
	}
}

func (m *Model) openWizard() {
	id := m.Snapshot.Cursor
	if id == "" {
		return
	}
	m.Mode = ModeWizard
	m.actions.Publish(domain.ViewLocked{Project: id})
	m.actions.Check([]domain.ProjectID{id}, false)
	m.refreshDetail()
}

func (m *Model) cycleTab(step int) {
	tabs := m.Snapshot.Tabs
	if len(tabs) == 0 {
		return
	}
	pos := slices.IndexFunc(tabs, func(t domain.TabView) bool { return t.Index == m.Snapshot.ActiveTab })
	if pos < 0 {
		pos = 0
	} else if !m.ShowProject {
		pos = (pos + step + len(tabs)) % len(tabs)
	}

	next := tabs[pos].Index
	m.Snapshot.ActiveTab = next
	m.ShowProject = false
	m.Follow = true
	m.actions.Publish(domain.TabFocused{Tab: next})
	m.refreshDetail()
}

func (m *Model) ensureVisible() {
	if m.ListHeight <= 0 {
		return
	}
	idx := m.cursorIndex()
	if idx < m.ListOffset {
		m.ListOffset = idx
	} else if idx >= m.ListOffset+m.ListHeight {
		m.ListOffset = idx - m.ListHeight + 1
	}
	m.ListOffset = max(0, min(m.ListOffset, len(m.Snapshot.Projects)-m.ListHeight))
}

// refreshDetail loads the content of the right pane into the viewport.
func (m *Model) refreshDetail() {
	tab, showTab := m.activeTab()
	if showTab && tab.Index != m.shownTab {
		m.Follow = true
	}
	m.shownTab = -1
	if showTab {
		m.shownTab = tab.Index
	}

	m.viewport.SetContent(m.detailContent())
	if showTab && m.Follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) activeTab() (domain.TabView, bool) {
	if m.Mode == ModeWizard || m.ShowProject {
		return domain.TabView{}, false
	}
	return m.Snapshot.Tab(m.Snapshot.ActiveTab)
}
