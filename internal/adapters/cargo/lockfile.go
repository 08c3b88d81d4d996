package cargo

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/zerr"
)

// Lockfile is the subset of Cargo.lock that discovery needs.
type Lockfile struct {
	Version  int           `toml:"version"`
	Packages []LockPackage `toml:"package"`
}

// LockPackage is one [[package]] entry.
type LockPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Source  string `toml:"source"`
}

// FromRegistry reports whether the package was resolved from a crates registry.
// Path and git dependencies cannot be checked for updates.
func (p LockPackage) FromRegistry() bool {
	return strings.HasPrefix(p.Source, "registry+") || strings.HasPrefix(p.Source, "sparse+")
}

// ReadLockfile parses the Cargo.lock at path.
func ReadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the directory walk
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockfileParseFailed.Error()), "path", path)
	}
	var l Lockfile
	if err := toml.Unmarshal(data, &l); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockfileParseFailed.Error()), "path", path)
	}
	return &l, nil
}

// Dependencies returns the locked registry packages whose name is in crates,
// in lockfile order. Each name and version pair appears once.
func (l *Lockfile) Dependencies(crates []string) []domain.Dependency {
	wanted := make(map[string]struct{}, len(crates))
	for _, c := range crates {
		wanted[c] = struct{}{}
	}

	type key struct{ name, version string }
	seen := make(map[key]struct{})
	var deps []domain.Dependency
	for _, pkg := range l.Packages {
		if !pkg.FromRegistry() {
			continue
		}
		if _, ok := wanted[pkg.Name]; !ok {
			continue
		}
		k := key{pkg.Name, pkg.Version}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		deps = append(deps, domain.Dependency{Name: pkg.Name, LockedVersion: pkg.Version})
	}
	return deps
}
