package ports

import (
	"context"

	"go.trai.ch/wash/internal/core/domain"
)

//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks

// ProcessRunner starts external build tool processes.
type ProcessRunner interface {
	// Start spawns exactly one process. It never returns nil: a spawn failure
	// yields a process that is already done with a FailedToStart status.
	Start(ctx context.Context, spec domain.ProcessSpec) Process
}

// Process is a running or finished child process.
type Process interface {
	// Lines delivers output lines in sequence order and is closed once output ends.
	// Callers must drain it.
	Lines() <-chan domain.OutputLine
	// Done is closed when the terminal status is known.
	Done() <-chan struct{}
	// Status returns the terminal status. It is only meaningful after Done is closed.
	Status() domain.ExitStatus
	// Cancel kills the process and its descendants and returns once they are reaped.
	Cancel() domain.ExitStatus
}
