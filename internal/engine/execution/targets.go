package execution

import (
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/zerr"
)

// ResolveTargets expands a request into the projects it runs against.
// Workspace roots expand to their members, preceded by the root itself when
// it also declares a package. Each project appears at most once.
func ResolveTargets(req domain.RunRequest, tree *domain.ProjectTree) ([]domain.Project, error) {
	ids := req.Selected
	if req.Scope == domain.ScopeAll {
		ids = tree.TopLevel()
	}

	seen := make(map[domain.ProjectID]struct{}, len(ids))
	var out []domain.Project
	add := func(id domain.ProjectID) {
		if _, dup := seen[id]; dup {
			return
		}
		if p, ok := tree.Lookup(id); ok {
			seen[id] = struct{}{}
			out = append(out, p)
		}
	}

	for _, id := range ids {
		p, ok := tree.Get(id)
		if !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrProjectNotFound, "cannot resolve targets"), "project", id.String())
		}
		if p.Role != domain.RoleWorkspaceRoot {
			add(id)
			continue
		}
		members := tree.Members(id)
		if p.HasPackage || len(members) == 0 {
			add(id)
		}
		for _, m := range members {
			add(m)
		}
	}

	if len(out) == 0 {
		return nil, domain.ErrNoTargets
	}
	return out, nil
}

// partition groups targets by the workspace they build in, keeping the order
// in which each workspace first appears.
func partition(targets []domain.Project) [][]domain.Project {
	index := make(map[domain.ProjectID]int)
	var groups [][]domain.Project
	for _, p := range targets {
		key := p.WorkspaceKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], p)
	}
	return groups
}
