package domain

import (
	"slices"
	"time"
)

// ProjectView is a read-only rendering of a project record.
type ProjectView struct {
	Project
	Depth    int
	Expanded bool
	Selected bool
	Status   ProjectCheckStatus
	// LastPersisted is when the project's cache entry was last written.
	LastPersisted time.Time
}

// WizardView is the locked update view for one project.
type WizardView struct {
	Project  ProjectID
	Name     string
	Outdated []Dependency
	// Cursor indexes Outdated.
	Cursor int
	// Selected names the outdated dependencies picked for update, in Outdated order.
	Selected []string
	Checking bool
	// Stale is set when the underlying record changed after the snapshot was taken.
	Stale bool
}

// IsSelected reports whether the named dependency is picked for update.
func (w *WizardView) IsSelected(name string) bool {
	return slices.Contains(w.Selected, name)
}

// UpdateCommand returns the update command for the picked dependencies.
// It reports false when nothing is picked.
func (w *WizardView) UpdateCommand() (Command, bool) {
	if len(w.Selected) == 0 {
		return Command{}, false
	}
	args := make([]string, 0, 2*len(w.Selected))
	for _, name := range w.Selected {
		args = append(args, "-p", name)
	}
	return Command{Name: "update", Args: args}, true
}

// TabView is a read-only rendering of an output tab.
type TabView struct {
	Index    int
	Project  ProjectID
	Title    string
	Command  Command
	Header   string
	Lines    []OutputLine
	Finished bool
	Status   ExitStatus
	Footer   string
}

// Snapshot is an immutable view of the whole application state.
// Every field is derived in the same synchronization pass.
type Snapshot struct {
	Version uint64
	// Projects holds the visible rows of the project tree.
	Projects []ProjectView
	// All holds every known project in discovery order, including collapsed members.
	All       []Project
	Selected  []ProjectID
	Cursor    ProjectID
	Detail    *ProjectView
	Wizard    *WizardView
	Tabs      []TabView
	ActiveTab int
}

// Project returns the view for id, if present in the visible list.
func (s *Snapshot) Project(id ProjectID) (ProjectView, bool) {
	for _, p := range s.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return ProjectView{}, false
}

// Tab returns the tab with the given index.
func (s *Snapshot) Tab(index int) (TabView, bool) {
	for _, t := range s.Tabs {
		if t.Index == index {
			return t, true
		}
	}
	return TabView{}, false
}

// Tree rebuilds a project tree from the snapshot.
func (s *Snapshot) Tree() *ProjectTree {
	return NewProjectTree(s.All)
}
