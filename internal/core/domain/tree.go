package domain

import (
	"iter"
	"slices"
)

// ProjectTree is an arena of projects indexed by identifier.
// Workspace roots carry an expanded flag; members are only listed under expanded roots.
type ProjectTree struct {
	nodes    map[ProjectID]*Project
	expanded map[ProjectID]bool
	order    []ProjectID
}

// VisibleNode is one row of the flattened tree.
type VisibleNode struct {
	ID    ProjectID
	Depth int
}

// NewProjectTree builds a tree from a discovery result. Input order is preserved.
func NewProjectTree(projects []Project) *ProjectTree {
	t := &ProjectTree{
		nodes:    make(map[ProjectID]*Project, len(projects)),
		expanded: make(map[ProjectID]bool),
		order:    make([]ProjectID, 0, len(projects)),
	}
	for i := range projects {
		p := projects[i]
		if _, dup := t.nodes[p.ID]; dup {
			continue
		}
		t.nodes[p.ID] = &p
		t.order = append(t.order, p.ID)
	}
	return t
}

// Len returns the number of projects in the tree.
func (t *ProjectTree) Len() int {
	return len(t.order)
}

// Get returns the project stored under id.
func (t *ProjectTree) Get(id ProjectID) (*Project, bool) {
	p, ok := t.nodes[id]
	return p, ok
}

// Lookup returns a copy of the project stored under id.
func (t *ProjectTree) Lookup(id ProjectID) (Project, bool) {
	p, ok := t.nodes[id]
	if !ok {
		return Project{}, false
	}
	return *p, true
}

// All yields every project in discovery order.
func (t *ProjectTree) All() iter.Seq[*Project] {
	return func(yield func(*Project) bool) {
		for _, id := range t.order {
			if !yield(t.nodes[id]) {
				return
			}
		}
	}
}

// TopLevel returns workspace roots and standalone projects in discovery order.
func (t *ProjectTree) TopLevel() []ProjectID {
	var out []ProjectID
	for _, id := range t.order {
		if t.nodes[id].IsTopLevel() {
			out = append(out, id)
		}
	}
	return out
}

// Members returns the members of a workspace root that are present in the tree.
func (t *ProjectTree) Members(root ProjectID) []ProjectID {
	p, ok := t.nodes[root]
	if !ok || p.Role != RoleWorkspaceRoot {
		return nil
	}
	out := make([]ProjectID, 0, len(p.Members))
	for _, m := range p.Members {
		if _, ok := t.nodes[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Expanded reports whether a workspace root is expanded.
func (t *ProjectTree) Expanded(id ProjectID) bool {
	return t.expanded[id]
}

// Toggle flips the expanded flag of a workspace root. Other projects are ignored.
func (t *ProjectTree) Toggle(id ProjectID) bool {
	p, ok := t.nodes[id]
	if !ok || p.Role != RoleWorkspaceRoot {
		return false
	}
	t.expanded[id] = !t.expanded[id]
	return true
}

// Visible flattens the tree into list rows, descending only into expanded roots.
func (t *ProjectTree) Visible() []VisibleNode {
	rows := make([]VisibleNode, 0, len(t.order))
	for _, id := range t.TopLevel() {
		rows = append(rows, VisibleNode{ID: id})
		if !t.expanded[id] {
			continue
		}
		for _, m := range t.Members(id) {
			rows = append(rows, VisibleNode{ID: m, Depth: 1})
		}
	}
	return rows
}

// Replace swaps in a new project set while keeping expanded flags of surviving roots.
// Surviving projects keep their artifact size when the new record has none, and
// dependencies still locked at the same version keep their freshness result.
func (t *ProjectTree) Replace(projects []Project) {
	next := NewProjectTree(projects)
	for id, open := range t.expanded {
		if _, ok := next.nodes[id]; ok && open {
			next.expanded[id] = true
		}
	}
	for id, p := range next.nodes {
		old, ok := t.nodes[id]
		if !ok {
			continue
		}
		if p.SizeComputedAt.IsZero() {
			p.ArtifactSize = old.ArtifactSize
			p.SizeComputedAt = old.SizeComputedAt
		}
		p.Dependencies = carryResults(p.Dependencies, old.Dependencies)
	}
	*t = *next
}

func carryResults(next, prev []Dependency) []Dependency {
	known := make(map[string]Dependency, len(prev))
	for _, d := range prev {
		known[d.Name] = d
	}
	out := make([]Dependency, len(next))
	for i, d := range next {
		if old, ok := known[d.Name]; ok && old.LockedVersion == d.LockedVersion && d.Status == DependencyUnchecked {
			d = old
		}
		out[i] = d
	}
	return out
}

// IDs returns every project identifier in discovery order.
func (t *ProjectTree) IDs() []ProjectID {
	return slices.Clone(t.order)
}
