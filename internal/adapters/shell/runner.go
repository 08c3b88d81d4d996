// Package shell runs build tool processes and streams their output line by line.
package shell

import (
	"context"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/creack/pty"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ProcessRunner = (*Runner)(nil)

const (
	// lineBuffer is the capacity of a process's line channel.
	lineBuffer = 256
	// defaultWaitDelay bounds how long output is drained after the child exits.
	defaultWaitDelay = 2 * time.Second
)

// Runner implements ports.ProcessRunner using os/exec, optionally under a PTY.
type Runner struct {
	logger    ports.Logger
	usePTY    bool
	ptySize   pty.Winsize
	waitDelay time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithPTY runs children attached to a pseudo-terminal. Stdout and stderr are merged.
func WithPTY(enabled bool) Option {
	return func(r *Runner) {
		r.usePTY = enabled
	}
}

// WithPTYSize sets the initial terminal size used in PTY mode.
func WithPTYSize(rows, cols uint16) Option {
	return func(r *Runner) {
		r.ptySize = pty.Winsize{Rows: rows, Cols: cols}
	}
}

// WithWaitDelay bounds how long output is drained after the child exits.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.waitDelay = d
	}
}

// NewRunner creates a new Runner.
func NewRunner(logger ports.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger:    logger,
		ptySize:   pty.Winsize{Rows: 40, Cols: 120},
		waitDelay: defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start spawns the process described by spec. The child becomes the leader of a
// new process group so cancellation reaches everything it spawns.
// Cancelling ctx is equivalent to calling Cancel on the returned process.
func (r *Runner) Start(ctx context.Context, spec domain.ProcessSpec) ports.Process {
	p := newProcess(r.logger)

	if len(spec.Args) == 0 {
		p.finish(domain.ExitStatus{Kind: domain.FailedToStart, Err: domain.ErrEmptyCommand})
		return p
	}

	cmd := exec.Command(spec.Args[0], spec.Args[1:]...) //nolint:gosec // build tool invocation
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnvironment(os.Environ(), spec.Env)
	cmd.WaitDelay = r.waitDelay
	p.cmd = cmd

	var err error
	if r.usePTY {
		err = p.startPTY(r.ptySize, r.waitDelay)
	} else {
		err = p.startPipes()
	}
	if err != nil {
		p.finish(domain.ExitStatus{
			Kind: domain.FailedToStart,
			Err: zerr.With(
				zerr.With(zerr.Wrap(err, domain.ErrProcessStartFailed.Error()), "command", spec.Args[0]),
				"dir", spec.Dir,
			),
		})
		return p
	}

	go p.watch(ctx)

	return p
}

// mergeEnvironment overlays overrides on the inherited environment.
func mergeEnvironment(sysEnv []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return sysEnv
	}

	env := make([]string, 0, len(sysEnv)+len(overrides))
	for _, kv := range sysEnv {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
