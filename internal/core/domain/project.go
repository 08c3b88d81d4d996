package domain

import (
	"path/filepath"
	"time"
)

// ProjectID identifies a project by its absolute directory path.
type ProjectID string

// String returns the path backing the identifier.
func (id ProjectID) String() string {
	return string(id)
}

// WorkspaceRole describes how a project participates in a cargo workspace.
type WorkspaceRole uint8

const (
	// RoleStandalone is a project that is not part of any workspace.
	RoleStandalone WorkspaceRole = iota
	// RoleWorkspaceRoot is a project declaring a [workspace] table.
	RoleWorkspaceRoot
	// RoleWorkspaceMember is a project listed as a member of a workspace root.
	RoleWorkspaceMember
)

func (r WorkspaceRole) String() string {
	switch r {
	case RoleWorkspaceRoot:
		return "workspace-root"
	case RoleWorkspaceMember:
		return "workspace-member"
	default:
		return "standalone"
	}
}

// ProjectCheckStatus aggregates the freshness status of a project's dependencies.
type ProjectCheckStatus uint8

const (
	// ProjectUnchecked means no dependency has been checked yet.
	ProjectUnchecked ProjectCheckStatus = iota
	// ProjectChecking means a registry lookup is in flight for the project.
	ProjectChecking
	// ProjectHasUpdates means at least one dependency is outdated.
	ProjectHasUpdates
	// ProjectUpToDate means every checked dependency is current.
	ProjectUpToDate
	// ProjectCheckFailed means at least one lookup failed and nothing is outdated.
	ProjectCheckFailed
)

func (s ProjectCheckStatus) String() string {
	switch s {
	case ProjectChecking:
		return "checking"
	case ProjectHasUpdates:
		return "has-updates"
	case ProjectUpToDate:
		return "up-to-date"
	case ProjectCheckFailed:
		return "failed"
	default:
		return "unchecked"
	}
}

// Project is a cargo package or workspace discovered under the scan root.
type Project struct {
	ID            ProjectID
	Name          string
	Role          WorkspaceRole
	WorkspaceRoot ProjectID
	Members       []ProjectID
	// HasPackage is set on workspace roots that also declare a [package].
	HasPackage   bool
	LockfilePath string
	Dependencies []Dependency

	ArtifactSize   int64
	SizeComputedAt time.Time
}

// Dir returns the project directory.
func (p *Project) Dir() string {
	return string(p.ID)
}

// IsTopLevel reports whether the project is addressed directly rather than through a workspace root.
func (p *Project) IsTopLevel() bool {
	return p.Role != RoleWorkspaceMember
}

// WorkspaceKey returns the identifier of the workspace the project builds in.
// Standalone projects are their own workspace.
func (p *Project) WorkspaceKey() ProjectID {
	if p.Role == RoleWorkspaceMember && p.WorkspaceRoot != "" {
		return p.WorkspaceRoot
	}
	return p.ID
}

// TargetDir returns the build output directory shared by the project's workspace.
func (p *Project) TargetDir() string {
	return filepath.Join(string(p.WorkspaceKey()), TargetDirName)
}

// CheckStatus derives the aggregate freshness status from the dependency list.
func (p *Project) CheckStatus() ProjectCheckStatus {
	if len(p.Dependencies) == 0 {
		return ProjectUnchecked
	}

	var checked, failed, outdated bool
	for i := range p.Dependencies {
		switch p.Dependencies[i].Status {
		case DependencyChecking:
			return ProjectChecking
		case DependencyOutdated:
			outdated = true
			checked = true
		case DependencyFresh:
			checked = true
		case DependencyFailed:
			failed = true
		case DependencyUnchecked:
		}
	}

	switch {
	case outdated:
		return ProjectHasUpdates
	case failed:
		return ProjectCheckFailed
	case checked:
		return ProjectUpToDate
	default:
		return ProjectUnchecked
	}
}

// OutdatedDependencies returns the dependencies with a newer version available.
func (p *Project) OutdatedDependencies() []Dependency {
	var out []Dependency
	for _, d := range p.Dependencies {
		if d.Status == DependencyOutdated {
			out = append(out, d)
		}
	}
	return out
}
