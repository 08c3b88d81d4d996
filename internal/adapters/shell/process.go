package shell

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Process = (*process)(nil)

type process struct {
	logger ports.Logger
	cmd    *exec.Cmd

	lines chan domain.OutputLine
	done  chan struct{}

	// emitMu serializes sequence numbering across stdout and stderr.
	emitMu sync.Mutex
	seq    uint64

	mu        sync.Mutex
	cancelled bool
	status    domain.ExitStatus

	started time.Time
}

func newProcess(logger ports.Logger) *process {
	return &process{
		logger: logger,
		lines:  make(chan domain.OutputLine, lineBuffer),
		done:   make(chan struct{}),
	}
}

func (p *process) Lines() <-chan domain.OutputLine {
	return p.lines
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) Status() domain.ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Cancel kills the process group and blocks until the child has been reaped.
func (p *process) Cancel() domain.ExitStatus {
	select {
	case <-p.done:
		return p.Status()
	default:
	}

	p.mu.Lock()
	p.cancelled = true
	p.mu.Unlock()

	if err := killProcessGroup(p.cmd); err != nil {
		p.logger.Error(zerr.With(zerr.Wrap(err, "failed to kill process group"), "pid", p.cmd.Process.Pid))
	}

	<-p.done
	return p.Status()
}

// startPipes starts the command with separate stdout and stderr pipes.
func (p *process) startPipes() error {
	stdout := &lineWriter{emit: func(s string) { p.emit(domain.Stdout, s) }}
	stderr := &lineWriter{emit: func(s string) { p.emit(domain.Stderr, s) }}
	p.cmd.Stdout = stdout
	p.cmd.Stderr = stderr
	setProcessGroup(p.cmd)

	p.started = time.Now()
	if err := p.cmd.Start(); err != nil {
		return err
	}

	go func() {
		err := p.cmd.Wait()
		_ = stdout.Close()
		_ = stderr.Close()
		p.exit(err)
	}()

	return nil
}

// startPTY starts the command attached to a new pseudo-terminal.
// pty.Start makes the child a session leader, which also gives it its own process group.
func (p *process) startPTY(size pty.Winsize, drain time.Duration) error {
	p.started = time.Now()
	ptmx, err := pty.StartWithSize(p.cmd, &size)
	if err != nil {
		return err
	}

	out := &lineWriter{emit: func(s string) { p.emit(domain.Stdout, s) }}
	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		// Reading the master returns EIO once every slave descriptor is closed.
		_, _ = io.Copy(out, ptmx)
	}()

	go func() {
		err := p.cmd.Wait()
		select {
		case <-ioDone:
		case <-time.After(drain):
			_ = ptmx.Close()
			<-ioDone
		}
		_ = ptmx.Close()
		_ = out.Close()
		p.exit(err)
	}()

	return nil
}

// watch cancels the process when ctx is done.
func (p *process) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		p.Cancel()
	case <-p.done:
	}
}

func (p *process) emit(stream domain.Stream, text string) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	p.seq++
	p.lines <- domain.OutputLine{Seq: p.seq, Stream: stream, Text: text}
}

// exit records the terminal status from the result of Wait.
func (p *process) exit(waitErr error) {
	duration := time.Since(p.started)

	p.mu.Lock()
	cancelled := p.cancelled
	p.mu.Unlock()

	status := domain.ExitStatus{Kind: domain.Exited, Duration: duration}
	switch {
	case cancelled:
		status.Kind = domain.Terminated
	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			status.Code = exitErr.ExitCode()
		} else if !errors.Is(waitErr, exec.ErrWaitDelay) {
			status.Code = -1
			status.Err = waitErr
		}
	}

	p.finish(status)
}

// finish publishes the terminal status. It must be called exactly once.
func (p *process) finish(status domain.ExitStatus) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
	close(p.lines)
	close(p.done)
}
