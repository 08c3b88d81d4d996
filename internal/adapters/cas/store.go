// Package cas implements the on-disk cache of dependency freshness results.
package cas

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CacheStore = (*Store)(nil)

// Store implements ports.CacheStore using one JSON file per project.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the cache files.
func (s *Store) Dir() string {
	return s.dir
}

// Load returns the cached entry for project when its fingerprint equals the given one.
// A missing file or a fingerprint mismatch yields a nil entry and no error.
func (s *Store) Load(project domain.ProjectID, fingerprint uint64) (*domain.CacheEntry, error) {
	filename := s.filename(project)
	//nolint:gosec // Path is constructed from the cache directory and a hashed filename
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "path", filename)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheDecodeFailed.Error()), "path", filename)
	}

	if entry.Fingerprint != fingerprint {
		return nil, nil
	}
	if entry.Dependencies == nil {
		entry.Dependencies = make(map[string]domain.CachedVersion)
	}

	return &entry, nil
}

// Save writes the entry to a temporary file and renames it over the project's cache file.
func (s *Store) Save(project domain.ProjectID, entry *domain.CacheEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheEncodeFailed.Error())
	}

	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheDirFailed.Error()), "path", s.dir)
	}

	filename := s.filename(project)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(filename)+".*.tmp")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", filename)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", filename)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", filename)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", filename)
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", filename)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", filename)
	}

	return nil
}

// Remove deletes the cache file for project.
func (s *Store) Remove(project domain.ProjectID) error {
	filename := s.filename(project)
	if err := os.Remove(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", filename)
	}
	return nil
}

// Purge deletes every cache file in the store directory.
// Files that do not belong to the store are left alone.
func (s *Store) Purge() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "path", s.dir)
	}

	var errs error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), domain.CacheFilePrefix) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "path", path))
		}
	}
	return errs
}

func (s *Store) filename(project domain.ProjectID) string {
	return filepath.Join(s.dir, FileName(project))
}

// FileName returns the cache file name for a project path.
func FileName(project domain.ProjectID) string {
	return fmt.Sprintf("%s%016x.json", domain.CacheFilePrefix, xxhash.Sum64String(string(project)))
}
