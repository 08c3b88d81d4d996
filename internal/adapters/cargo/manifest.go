// Package cargo discovers cargo projects and reads their manifests and lockfiles.
package cargo

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/zerr"
)

// Manifest is the subset of Cargo.toml that discovery needs.
type Manifest struct {
	Package           *PackageTable   `toml:"package"`
	Workspace         *WorkspaceTable `toml:"workspace"`
	Dependencies      map[string]any  `toml:"dependencies"`
	DevDependencies   map[string]any  `toml:"dev-dependencies"`
	BuildDependencies map[string]any  `toml:"build-dependencies"`
}

// PackageTable is the [package] table.
type PackageTable struct {
	Name string `toml:"name"`
}

// WorkspaceTable is the [workspace] table.
type WorkspaceTable struct {
	Members []string `toml:"members"`
	Exclude []string `toml:"exclude"`
}

// ReadManifest parses the Cargo.toml at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the directory walk
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestParseFailed.Error()), "path", path)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestParseFailed.Error()), "path", path)
	}
	return &m, nil
}

// DeclaredCrates returns the registry names of every declared dependency.
// Renamed dependencies resolve to their package key.
func (m *Manifest) DeclaredCrates() []string {
	seen := make(map[string]struct{})
	for _, table := range []map[string]any{m.Dependencies, m.DevDependencies, m.BuildDependencies} {
		for key, spec := range table {
			name := key
			if detail, ok := spec.(map[string]any); ok {
				if pkg, ok := detail["package"].(string); ok && pkg != "" {
					name = pkg
				}
			}
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// memberDirs resolves workspace member globs relative to root, minus excluded paths.
func (w *WorkspaceTable) memberDirs(root string) ([]string, error) {
	excluded := make(map[string]struct{}, len(w.Exclude))
	for _, ex := range w.Exclude {
		excluded[filepath.Join(root, ex)] = struct{}{}
	}

	dirs := make(map[string]struct{})
	for _, pattern := range w.Members {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrManifestParseFailed, "invalid member pattern"), "pattern", pattern)
		}
		for _, match := range matches {
			if _, skip := excluded[match]; skip {
				continue
			}
			if _, err := os.Stat(filepath.Join(match, domain.ManifestFileName)); err != nil {
				continue
			}
			dirs[filepath.Clean(match)] = struct{}{}
		}
	}

	out := make([]string, 0, len(dirs))
	for dir := range dirs {
		if dir != root {
			out = append(out, dir)
		}
	}
	slices.Sort(out)
	return out, nil
}
