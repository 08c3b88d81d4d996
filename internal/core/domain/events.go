package domain

import "time"

// Event is a discrete change applied by the state synchronizer.
// Producers emit events describing completed work; they never mutate shared state.
type Event interface {
	event()
}

// ProjectsDiscovered replaces the project set after a scan or rescan.
type ProjectsDiscovered struct {
	Projects []Project
}

// TabOpened allocates an output tab for a project run.
type TabOpened struct {
	Tab     int
	Project ProjectID
	Title   string
	Command Command
	Header  string
}

// LineEmitted appends one output line to a tab.
type LineEmitted struct {
	Tab  int
	Line OutputLine
}

// RunFinished closes a tab with its terminal status.
type RunFinished struct {
	Tab    int
	Status ExitStatus
	Footer string
}

// CheckStarted marks that a registry lookup is in flight for a project.
type CheckStarted struct {
	Project ProjectID
	At      time.Time
}

// CheckFinished is the batched freshness result for one project.
type CheckFinished struct {
	Project      ProjectID
	Dependencies []Dependency
	// StartedAt orders competing results for the same project.
	StartedAt time.Time
	Priority  Priority
	// FromCache is set when every dependency resolved without a lookup.
	FromCache bool
}

// CacheSaved confirms that a project's cache entry was persisted.
type CacheSaved struct {
	Project ProjectID
	At      time.Time
}

// SizeComputed carries a fresh artifact size measurement.
type SizeComputed struct {
	Project ProjectID
	Bytes   int64
	At      time.Time
}

// SelectionChanged replaces the multi-selection.
type SelectionChanged struct {
	Selected []ProjectID
}

// CursorMoved moves the list cursor to a project.
type CursorMoved struct {
	Project ProjectID
}

// ExpandToggled expands or collapses a workspace root.
type ExpandToggled struct {
	Project ProjectID
}

// ViewLocked pins the wizard view to a project.
type ViewLocked struct {
	Project ProjectID
}

// ViewRefreshed re-snapshots the locked view from the current record.
type ViewRefreshed struct{}

// ViewUnlocked releases the wizard view.
type ViewUnlocked struct{}

// UpdatesSelected replaces the dependencies picked in the wizard.
type UpdatesSelected struct {
	Names []string
}

// WizardCursorMoved moves the wizard cursor to an outdated dependency.
type WizardCursorMoved struct {
	Index int
}

// TabFocused selects the output tab shown in the detail area.
type TabFocused struct {
	Tab int
}

func (ProjectsDiscovered) event() {}
func (TabOpened) event()          {}
func (LineEmitted) event()        {}
func (RunFinished) event()        {}
func (CheckStarted) event()       {}
func (CheckFinished) event()      {}
func (CacheSaved) event()         {}
func (SizeComputed) event()       {}
func (SelectionChanged) event()   {}
func (CursorMoved) event()        {}
func (ExpandToggled) event()      {}
func (ViewLocked) event()         {}
func (ViewRefreshed) event()      {}
func (ViewUnlocked) event()       {}
func (UpdatesSelected) event()    {}
func (WizardCursorMoved) event()  {}
func (TabFocused) event()         {}
