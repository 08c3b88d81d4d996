package cargo

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/wash/internal/adapters/fs"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ProjectSource = (*Discoverer)(nil)

// skipDirs are never descended into.
var skipDirs = []string{".*", domain.TargetDirName, "node_modules"}

// Discoverer finds cargo projects by walking a directory tree.
type Discoverer struct {
	walker *fs.Walker
	logger ports.Logger
}

// NewDiscoverer creates a new Discoverer.
func NewDiscoverer(walker *fs.Walker, logger ports.Logger) *Discoverer {
	return &Discoverer{walker: walker, logger: logger}
}

type manifestAt struct {
	dir      string
	manifest *Manifest
}

// Discover returns every cargo project under root sorted by path.
// Unparseable manifests are skipped with a warning.
func (d *Discoverer) Discover(ctx context.Context, root string) ([]domain.Project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "cannot resolve scan root"), "root", root)
	}

	found := make(map[string]*Manifest)
	var order []string
	for file := range d.walker.WalkFiles(root, skipDirs) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if file.Entry.Name() != domain.ManifestFileName {
			continue
		}
		m, err := ReadManifest(file.Path)
		if err != nil {
			d.logger.Warn(fmt.Sprintf("skipping %s: %v", file.Path, err))
			continue
		}
		dir := filepath.Dir(file.Path)
		found[dir] = m
		order = append(order, dir)
	}

	// Resolve workspaces first so members know their root.
	memberOf := make(map[string]string)
	members := make(map[string][]domain.ProjectID)
	for _, dir := range order {
		ws := found[dir].Workspace
		if ws == nil {
			continue
		}
		dirs, err := ws.memberDirs(dir)
		if err != nil {
			d.logger.Warn(fmt.Sprintf("workspace %s: %v", dir, err))
			continue
		}
		for _, member := range dirs {
			if _, ok := found[member]; !ok {
				continue
			}
			if _, claimed := memberOf[member]; claimed {
				continue
			}
			memberOf[member] = dir
			members[dir] = append(members[dir], domain.ProjectID(member))
		}
	}

	projects := make([]domain.Project, 0, len(order))
	for _, dir := range order {
		m := found[dir]
		p := domain.Project{
			ID:         domain.ProjectID(dir),
			Name:       projectName(dir, m),
			HasPackage: m.Package != nil,
		}

		lockDir := dir
		switch {
		case m.Workspace != nil:
			p.Role = domain.RoleWorkspaceRoot
			p.Members = members[dir]
		case memberOf[dir] != "":
			p.Role = domain.RoleWorkspaceMember
			p.WorkspaceRoot = domain.ProjectID(memberOf[dir])
			lockDir = memberOf[dir]
		}

		p.LockfilePath = filepath.Join(lockDir, domain.LockfileName)
		p.Dependencies = d.dependencies(p.LockfilePath, m)
		projects = append(projects, p)
	}

	if len(projects) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrNoProjectsFound, "discovery failed"), "root", root)
	}

	slices.SortFunc(projects, func(a, b domain.Project) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return projects, nil
}

// dependencies reads the locked versions of the crates m declares.
// A missing lockfile means the project has never been built and has no deps yet.
func (d *Discoverer) dependencies(lockPath string, m *Manifest) []domain.Dependency {
	crates := m.DeclaredCrates()
	if len(crates) == 0 {
		return nil
	}
	lock, err := ReadLockfile(lockPath)
	if err != nil {
		if _, statErr := os.Stat(lockPath); statErr == nil {
			d.logger.Warn(fmt.Sprintf("ignoring %s: %v", lockPath, err))
		}
		return nil
	}
	return lock.Dependencies(crates)
}

func projectName(dir string, m *Manifest) string {
	if m.Package != nil && m.Package.Name != "" {
		return m.Package.Name
	}
	return filepath.Base(dir)
}
