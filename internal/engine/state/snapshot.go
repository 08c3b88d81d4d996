package state

import (
	"slices"

	"go.trai.ch/wash/internal/core/domain"
)

// Snapshot derives every view from the current state in one pass.
func (s *State) Snapshot(version uint64) domain.Snapshot {
	snap := domain.Snapshot{
		Version:   version,
		Cursor:    s.cursor,
		Selected:  slices.Clone(s.selected),
		ActiveTab: s.activeTab,
	}

	snap.All = make([]domain.Project, 0, s.tree.Len())
	for p := range s.tree.All() {
		snap.All = append(snap.All, *p)
	}

	rows := s.tree.Visible()
	snap.Projects = make([]domain.ProjectView, 0, len(rows))
	for _, row := range rows {
		view := s.projectView(row)
		snap.Projects = append(snap.Projects, view)
		if row.ID == s.cursor {
			detail := view
			snap.Detail = &detail
		}
	}

	if s.lock != nil {
		wizard := s.lock.view
		wizard.Selected = slices.Clone(wizard.Selected)
		wizard.Checking = s.checking[s.lock.project]
		snap.Wizard = &wizard
	}

	snap.Tabs = make([]domain.TabView, len(s.tabs))
	for i, t := range s.tabs {
		view := t.view
		view.Lines = slices.Clip(view.Lines)
		snap.Tabs[i] = view
	}
	return snap
}

func (s *State) projectView(row domain.VisibleNode) domain.ProjectView {
	p, _ := s.tree.Get(row.ID)
	status := p.CheckStatus()
	if s.checking[p.ID] {
		status = domain.ProjectChecking
	}
	return domain.ProjectView{
		Project:       *p,
		Depth:         row.Depth,
		Expanded:      s.tree.Expanded(p.ID),
		Selected:      slices.Contains(s.selected, p.ID),
		Status:        status,
		LastPersisted: s.persisted[p.ID],
	}
}
