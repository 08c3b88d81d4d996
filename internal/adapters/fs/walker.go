// Package fs provides file system adapters for walking, hashing and sizing files.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// File is a regular file found by the walker.
type File struct {
	Path  string
	Entry fs.DirEntry
}

// WalkFiles yields every non-directory entry under root, skipping VCS metadata
// and directories whose name matches one of the ignore patterns. The root itself
// is always walked.
// Unreadable directories are skipped rather than aborting the walk.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq[File] {
	return func(yield func(File) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}

			if path != root {
				if skipAction := w.shouldSkipDir(d, ignores); skipAction != nil {
					return skipAction
				}
			}

			if d.IsDir() {
				return nil
			}

			if !yield(File{Path: path, Entry: d}) {
				return filepath.SkipAll
			}

			return nil
		})
	}
}

// shouldSkipDir returns filepath.SkipDir for directories that must not be descended into.
func (w *Walker) shouldSkipDir(d fs.DirEntry, ignores []string) error {
	if !d.IsDir() {
		return nil
	}

	name := d.Name()
	if name == ".git" || name == ".jj" {
		return filepath.SkipDir
	}

	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return filepath.SkipDir
		}
	}

	return nil
}
