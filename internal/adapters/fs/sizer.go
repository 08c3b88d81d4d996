package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.ArtifactSizer = (*Sizer)(nil)

// sizerParallelism is the number of top-level subdirectories measured at once.
const sizerParallelism = 4

// Sizer measures build output directories.
type Sizer struct {
	walker *Walker
}

// NewSizer creates a new Sizer.
func NewSizer(walker *Walker) *Sizer {
	return &Sizer{walker: walker}
}

// ArtifactSize returns the total size in bytes of the regular files under dir.
// A missing directory has size zero.
func (s *Sizer) ArtifactSize(ctx context.Context, dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return 0, nil
		}
		return 0, zerr.With(zerr.Wrap(err, "failed to read artifact directory"), "path", dir)
	}

	var total atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sizerParallelism)

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if !e.IsDir() {
			total.Add(entrySize(e))
			continue
		}
		g.Go(func() error {
			for f := range s.walker.WalkFiles(path, nil) {
				if err := ctx.Err(); err != nil {
					return err
				}
				total.Add(entrySize(f.Entry))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "artifact size computation aborted"), "path", dir)
	}
	return total.Load(), nil
}

func entrySize(e iofs.DirEntry) int64 {
	if !e.Type().IsRegular() {
		return 0
	}
	info, err := e.Info()
	if err != nil {
		return 0
	}
	return info.Size()
}
