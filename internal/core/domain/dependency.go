package domain

import (
	"time"

	"golang.org/x/mod/semver"
)

// DependencyStatus is the freshness state of a single locked dependency.
type DependencyStatus uint8

const (
	// DependencyUnchecked means no lookup result is known.
	DependencyUnchecked DependencyStatus = iota
	// DependencyChecking means a registry lookup is in flight.
	DependencyChecking
	// DependencyFresh means the locked version is the latest stable release.
	DependencyFresh
	// DependencyOutdated means a newer stable release exists.
	DependencyOutdated
	// DependencyFailed means the last lookup failed and will be retried.
	DependencyFailed
)

func (s DependencyStatus) String() string {
	switch s {
	case DependencyChecking:
		return "checking"
	case DependencyFresh:
		return "fresh"
	case DependencyOutdated:
		return "outdated"
	case DependencyFailed:
		return "failed"
	default:
		return "unchecked"
	}
}

// Dependency is a third-party crate pinned in a project's lockfile.
type Dependency struct {
	Name          string
	LockedVersion string
	// LatestVersion is empty until a lookup succeeds.
	LatestVersion string
	// CheckedAt is zero until a lookup succeeds.
	CheckedAt time.Time
	Status    DependencyStatus
}

// Resolve returns a copy of d carrying the given lookup result and the derived status.
func (d Dependency) Resolve(latest string, checkedAt time.Time) Dependency {
	d.LatestVersion = latest
	d.CheckedAt = checkedAt
	if d.HasStableUpdate() {
		d.Status = DependencyOutdated
	} else {
		d.Status = DependencyFresh
	}
	return d
}

// Fail returns a copy of d marked as failed, without any latest version.
func (d Dependency) Fail() Dependency {
	d.LatestVersion = ""
	d.CheckedAt = time.Time{}
	d.Status = DependencyFailed
	return d
}

// HasStableUpdate reports whether the latest version is newer than the locked one.
// Prereleases never count as an update for a stable locked version.
func (d Dependency) HasStableUpdate() bool {
	if d.LatestVersion == "" {
		return false
	}
	locked, latest := canonical(d.LockedVersion), canonical(d.LatestVersion)
	if !semver.IsValid(locked) || !semver.IsValid(latest) {
		return d.LatestVersion != d.LockedVersion
	}
	if semver.Prerelease(locked) == "" && semver.Prerelease(latest) != "" {
		return false
	}
	return semver.Compare(latest, locked) > 0
}

// IsMajorUpdate reports whether moving to the latest version crosses a
// compatibility boundary. For 0.x versions a minor bump is breaking.
func (d Dependency) IsMajorUpdate() bool {
	if !d.HasStableUpdate() {
		return false
	}
	locked, latest := canonical(d.LockedVersion), canonical(d.LatestVersion)
	if !semver.IsValid(locked) || !semver.IsValid(latest) {
		return false
	}
	if semver.Major(locked) == "v0" {
		return semver.MajorMinor(latest) != semver.MajorMinor(locked)
	}
	return semver.Major(latest) != semver.Major(locked)
}

// UpdateNote describes what applying the update requires.
func (d Dependency) UpdateNote() string {
	if d.IsMajorUpdate() {
		return "requires Cargo.toml change"
	}
	return ""
}

func canonical(v string) string {
	if v == "" || v[0] == 'v' {
		return v
	}
	return "v" + v
}
