package state

import (
	"fmt"
	"slices"
	"time"

	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/zerr"
)

// State is the authoritative application state. It is owned by a single
// goroutine and only changes through Apply.
type State struct {
	tree      *domain.ProjectTree
	selected  []domain.ProjectID
	cursor    domain.ProjectID
	checking  map[domain.ProjectID]bool
	lastCheck map[domain.ProjectID]time.Time
	persisted map[domain.ProjectID]time.Time

	tabs      []*tab
	tabIndex  map[int]*tab
	activeTab int

	lock *lockState
}

type tab struct {
	view    domain.TabView
	lastSeq uint64
}

type lockState struct {
	project domain.ProjectID
	view    domain.WizardView
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		tree:      domain.NewProjectTree(nil),
		checking:  make(map[domain.ProjectID]bool),
		lastCheck: make(map[domain.ProjectID]time.Time),
		persisted: make(map[domain.ProjectID]time.Time),
		tabIndex:  make(map[int]*tab),
	}
}

// Apply runs one transition. An error means the event contradicts the
// state's bookkeeping and the state must not be used further.
func (s *State) Apply(ev domain.Event) error {
	return reduce(s, ev)
}

func reduce(s *State, ev domain.Event) error {
	switch ev := ev.(type) {
	case domain.ProjectsDiscovered:
		s.discover(ev.Projects)
	case domain.TabOpened:
		return s.openTab(ev)
	case domain.LineEmitted:
		return s.appendLine(ev)
	case domain.RunFinished:
		return s.finishRun(ev)
	case domain.CheckStarted:
		if _, ok := s.tree.Get(ev.Project); ok {
			s.checking[ev.Project] = true
		}
	case domain.CheckFinished:
		s.finishCheck(ev)
	case domain.CacheSaved:
		if ev.At.After(s.persisted[ev.Project]) {
			s.persisted[ev.Project] = ev.At
		}
	case domain.SizeComputed:
		if p, ok := s.tree.Get(ev.Project); ok && !ev.At.Before(p.SizeComputedAt) {
			p.ArtifactSize = ev.Bytes
			p.SizeComputedAt = ev.At
		}
	case domain.SelectionChanged:
		s.selected = s.known(ev.Selected)
	case domain.CursorMoved:
		if _, ok := s.tree.Get(ev.Project); ok {
			s.cursor = ev.Project
		}
	case domain.ExpandToggled:
		if s.tree.Toggle(ev.Project) && !s.tree.Expanded(ev.Project) {
			if p, ok := s.tree.Get(s.cursor); ok && p.WorkspaceRoot == ev.Project {
				s.cursor = ev.Project
			}
		}
	case domain.ViewLocked:
		if _, ok := s.tree.Get(ev.Project); ok {
			s.lock = &lockState{project: ev.Project}
			s.refreshLock()
		}
	case domain.ViewRefreshed:
		s.refreshLock()
	case domain.ViewUnlocked:
		s.lock = nil
	case domain.UpdatesSelected:
		if s.lock != nil {
			s.lock.view.Selected = pick(s.lock.view.Outdated, ev.Names)
		}
	case domain.WizardCursorMoved:
		if s.lock != nil && ev.Index >= 0 && ev.Index < len(s.lock.view.Outdated) {
			s.lock.view.Cursor = ev.Index
		}
	case domain.TabFocused:
		if _, ok := s.tabIndex[ev.Tab]; ok {
			s.activeTab = ev.Tab
		}
	default:
		return zerr.With(zerr.Wrap(domain.ErrInvariantViolated, "unknown event"), "event", fmt.Sprintf("%T", ev))
	}
	return nil
}

func (s *State) discover(projects []domain.Project) {
	s.tree.Replace(projects)
	s.selected = s.known(s.selected)

	for id := range s.checking {
		if _, ok := s.tree.Get(id); !ok {
			delete(s.checking, id)
		}
	}
	if s.lock != nil {
		if _, ok := s.tree.Get(s.lock.project); !ok {
			s.lock = nil
		} else {
			s.lock.view.Stale = true
		}
	}
	if _, ok := s.tree.Get(s.cursor); !ok || !s.visible(s.cursor) {
		s.cursor = ""
		if rows := s.tree.Visible(); len(rows) > 0 {
			s.cursor = rows[0].ID
		}
	}
}

func (s *State) openTab(ev domain.TabOpened) error {
	if _, dup := s.tabIndex[ev.Tab]; dup {
		return zerr.With(zerr.Wrap(domain.ErrInvariantViolated, "tab reused"), "tab", ev.Tab)
	}
	t := &tab{view: domain.TabView{
		Index:   ev.Tab,
		Project: ev.Project,
		Title:   ev.Title,
		Command: ev.Command,
		Header:  ev.Header,
	}}
	s.tabs = append(s.tabs, t)
	s.tabIndex[ev.Tab] = t

	if active, ok := s.tabIndex[s.activeTab]; !ok || active.view.Finished {
		s.activeTab = ev.Tab
	}
	return nil
}

func (s *State) appendLine(ev domain.LineEmitted) error {
	t, ok := s.tabIndex[ev.Tab]
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrInvariantViolated, "line for unknown tab"), "tab", ev.Tab)
	}
	if t.view.Finished {
		return zerr.With(zerr.Wrap(domain.ErrInvariantViolated, "line after finish"), "tab", ev.Tab)
	}
	if ev.Line.Seq <= t.lastSeq {
		err := zerr.With(zerr.Wrap(domain.ErrInvariantViolated, "line sequence not increasing"), "tab", ev.Tab)
		return zerr.With(zerr.With(err, "seq", ev.Line.Seq), "last", t.lastSeq)
	}
	t.lastSeq = ev.Line.Seq
	// Published snapshots only read up to their own length, so appending is safe.
	t.view.Lines = append(t.view.Lines, ev.Line)
	return nil
}

func (s *State) finishRun(ev domain.RunFinished) error {
	t, ok := s.tabIndex[ev.Tab]
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrInvariantViolated, "finish for unknown tab"), "tab", ev.Tab)
	}
	if t.view.Finished {
		return zerr.With(zerr.Wrap(domain.ErrInvariantViolated, "tab finished twice"), "tab", ev.Tab)
	}
	t.view.Finished = true
	t.view.Status = ev.Status
	t.view.Footer = ev.Footer
	return nil
}

// finishCheck applies a batched result unless a newer check already landed.
// The checking flag clears either way.
func (s *State) finishCheck(ev domain.CheckFinished) {
	p, ok := s.tree.Get(ev.Project)
	if !ok {
		return
	}
	delete(s.checking, ev.Project)

	superseded := ev.StartedAt.Before(s.lastCheck[ev.Project])
	if !superseded {
		s.lastCheck[ev.Project] = ev.StartedAt
		p.Dependencies = merge(p.Dependencies, ev.Dependencies)
	}

	if s.lock == nil || s.lock.project != ev.Project {
		return
	}
	switch {
	case ev.Priority == domain.PriorityUser:
		// The wizard is waiting on this check even when a newer result won.
		s.refreshLock()
	case !superseded:
		s.lock.view.Stale = true
	}
}

// merge returns a new dependency list with results applied where the name and
// locked version still match.
func merge(current, results []domain.Dependency) []domain.Dependency {
	byName := make(map[string]domain.Dependency, len(results))
	for _, d := range results {
		byName[d.Name] = d
	}
	out := slices.Clone(current)
	for i, d := range out {
		if r, ok := byName[d.Name]; ok && r.LockedVersion == d.LockedVersion {
			out[i] = r
		}
	}
	return out
}

func (s *State) refreshLock() {
	if s.lock == nil {
		return
	}
	p, ok := s.tree.Get(s.lock.project)
	if !ok {
		s.lock = nil
		return
	}
	prev := s.lock.view
	outdated := p.OutdatedDependencies()
	s.lock.view = domain.WizardView{
		Project:  p.ID,
		Name:     p.Name,
		Outdated: outdated,
		Cursor:   min(prev.Cursor, max(len(outdated)-1, 0)),
		Selected: pick(outdated, prev.Selected),
	}
}

// pick returns the names of outdated that appear in names, in outdated order.
func pick(outdated []domain.Dependency, names []string) []string {
	var out []string
	for _, d := range outdated {
		if slices.Contains(names, d.Name) {
			out = append(out, d.Name)
		}
	}
	return out
}

func (s *State) known(ids []domain.ProjectID) []domain.ProjectID {
	out := make([]domain.ProjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.tree.Get(id); ok && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *State) visible(id domain.ProjectID) bool {
	return slices.ContainsFunc(s.tree.Visible(), func(n domain.VisibleNode) bool { return n.ID == id })
}
