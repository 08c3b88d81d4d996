package ports

import "go.trai.ch/wash/internal/core/domain"

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// CacheStore persists per-project freshness data.
type CacheStore interface {
	// Load returns the entry for project if its fingerprint matches.
	// It returns nil without error when there is no valid entry.
	Load(project domain.ProjectID, fingerprint uint64) (*domain.CacheEntry, error)
	// Save atomically replaces the entry for project.
	Save(project domain.ProjectID, entry *domain.CacheEntry) error
	// Remove deletes the entry for project, if any.
	Remove(project domain.ProjectID) error
	// Purge deletes every entry.
	Purge() error
}
