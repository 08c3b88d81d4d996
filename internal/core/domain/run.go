package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Command is a build tool subcommand with its arguments.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a command token such as "build --release" on whitespace.
func ParseCommand(token string) (Command, error) {
	fields := strings.Fields(token)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}
	return Command{Name: fields[0], Args: fields[1:]}, nil
}

// Argv returns the argument list passed to the build tool.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// IsClean reports whether the command removes build artifacts.
func (c Command) IsClean() bool {
	return c.Name == "clean"
}

// Scope selects which projects a run targets.
type Scope uint8

const (
	// ScopeSelected targets the current multi-selection.
	ScopeSelected Scope = iota
	// ScopeAll targets every top-level project.
	ScopeAll
)

// RunRequest is a single user-issued command against a set of projects.
type RunRequest struct {
	ID       uuid.UUID
	Command  Command
	Scope    Scope
	Selected []ProjectID
}

// NewRunRequest creates a request with a fresh identifier.
func NewRunRequest(cmd Command, scope Scope, selected []ProjectID) RunRequest {
	return RunRequest{
		ID:       uuid.New(),
		Command:  cmd,
		Scope:    scope,
		Selected: selected,
	}
}

// Stream tags which output stream a line was read from.
type Stream uint8

const (
	// Stdout is the child's standard output, or the merged terminal output under a PTY.
	Stdout Stream = iota
	// Stderr is the child's standard error.
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// OutputLine is one line of process output. Seq is strictly increasing per process.
type OutputLine struct {
	Seq    uint64
	Stream Stream
	Text   string
}

// ExitKind is the terminal state of a process.
type ExitKind uint8

const (
	// ExitPending means the process has not terminated yet.
	ExitPending ExitKind = iota
	// Exited means the process ran to completion with an exit code.
	Exited
	// FailedToStart means the process could not be spawned.
	FailedToStart
	// Terminated means the process was cancelled and killed.
	Terminated
)

func (k ExitKind) String() string {
	switch k {
	case Exited:
		return "exited"
	case FailedToStart:
		return "failed-to-start"
	case Terminated:
		return "terminated"
	default:
		return "pending"
	}
}

// ExitStatus is the terminal event of a process.
type ExitStatus struct {
	Kind     ExitKind
	Code     int
	Duration time.Duration
	Err      error
}

// Success reports whether the process exited with code zero.
func (s ExitStatus) Success() bool {
	return s.Kind == Exited && s.Code == 0
}

// ProcessSpec describes one external process invocation.
type ProcessSpec struct {
	Dir  string
	Args []string
	Env  map[string]string
}

// RunResult is the outcome of one project's run, owned by its tab.
type RunResult struct {
	Tab     int
	Project ProjectID
	Command Command
	Status  ExitStatus
	Lines   []OutputLine
}
