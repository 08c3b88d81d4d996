package ports

import (
	"context"

	"go.trai.ch/wash/internal/core/domain"
)

// Renderer presents state snapshots to the user.
type Renderer interface {
	// Start begins the rendering loop.
	Start(ctx context.Context) error
	// Stop flushes output and ends the rendering loop.
	Stop() error
	// Wait blocks until the renderer has terminated.
	Wait() error
	// Render receives the latest snapshot.
	Render(snap domain.Snapshot)
}
