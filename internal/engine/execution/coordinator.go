// Package execution runs build tool commands across projects.
//
// Members of one workspace share a target directory and run one after another;
// distinct workspaces and standalone projects run concurrently. Progress is
// reported to the event sink only.
package execution

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Coordinator turns run requests into per-project processes and output tabs.
type Coordinator struct {
	runner ports.ProcessRunner
	sizer  ports.ArtifactSizer
	sink   ports.EventSink
	tracer ports.Tracer
	logger ports.Logger
	tool   string
	env    map[string]string

	mu         sync.Mutex
	nextTab    int
	live       map[int]ports.Process
	// waiting holds tabs that have not started; true marks a cancelled one.
	waiting    map[int]bool
	executions map[uuid.UUID]*Execution

	background sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTool sets the build tool binary.
func WithTool(tool string) Option {
	return func(c *Coordinator) {
		if tool != "" {
			c.tool = tool
		}
	}
}

// WithEnv sets extra environment variables for every process.
func WithEnv(env map[string]string) Option {
	return func(c *Coordinator) {
		c.env = env
	}
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(
	runner ports.ProcessRunner,
	sizer ports.ArtifactSizer,
	sink ports.EventSink,
	tracer ports.Tracer,
	logger ports.Logger,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		runner:     runner,
		sizer:      sizer,
		sink:       sink,
		tracer:     tracer,
		logger:     logger,
		tool:       domain.DefaultTool,
		live:       make(map[int]ports.Process),
		waiting:    make(map[int]bool),
		executions: make(map[uuid.UUID]*Execution),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execution is one request in progress.
type Execution struct {
	ID      uuid.UUID
	Command domain.Command
	// Tabs lists the tab of every target in result order.
	Tabs []int

	results []domain.RunResult
	cancel  context.CancelFunc
	done    chan struct{}
}

// Done is closed once every target has reached a terminal status.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the execution finishes and returns the results in tab order.
func (e *Execution) Wait() []domain.RunResult {
	<-e.done
	return e.results
}

// Err reports every target that did not succeed.
func (e *Execution) Err() error {
	var errs []error
	for _, r := range e.Wait() {
		if r.Status.Success() {
			continue
		}
		err := zerr.Wrap(domain.ErrRunFailed, r.Status.Kind.String())
		if r.Status.Err != nil {
			err = zerr.Wrap(r.Status.Err, domain.ErrRunFailed.Error())
		}
		err = zerr.With(err, "project", r.Project.String())
		errs = append(errs, zerr.With(err, "code", r.Status.Code))
	}
	return errors.Join(errs...)
}

type job struct {
	slot    int
	tab     int
	project domain.Project
}

// Execute resolves the request's targets, opens one tab per target and starts
// the runs. It returns once every tab is open.
func (c *Coordinator) Execute(ctx context.Context, req domain.RunRequest, tree *domain.ProjectTree) (*Execution, error) {
	targets, err := ResolveTargets(req, tree)
	if err != nil {
		return nil, err
	}
	groups := partition(targets)

	runCtx, cancel := context.WithCancel(ctx)
	exec := &Execution{
		ID:      req.ID,
		Command: req.Command,
		results: make([]domain.RunResult, len(targets)),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	jobs := make([][]job, len(groups))
	c.mu.Lock()
	slot := 0
	for gi, group := range groups {
		for _, p := range group {
			c.nextTab++
			jobs[gi] = append(jobs[gi], job{slot: slot, tab: c.nextTab, project: p})
			exec.Tabs = append(exec.Tabs, c.nextTab)
			c.waiting[c.nextTab] = false
			slot++
		}
	}
	c.executions[exec.ID] = exec
	c.mu.Unlock()

	for _, group := range jobs {
		for _, j := range group {
			c.sink.Publish(domain.TabOpened{
				Tab:     j.tab,
				Project: j.project.ID,
				Title:   j.project.Name,
				Command: req.Command,
				Header:  Header(c.tool, req.Command, j.project.Dir()),
			})
		}
	}

	var g errgroup.Group
	for _, group := range jobs {
		g.Go(func() error {
			for _, j := range group {
				exec.results[j.slot] = c.run(runCtx, req.Command, j)
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		cancel()
		c.mu.Lock()
		delete(c.executions, exec.ID)
		c.mu.Unlock()
		close(exec.done)
	}()

	return exec, nil
}

// run executes one target to completion. A target whose tab was cancelled, or
// whose context is done, before it started reports terminated without starting.
func (c *Coordinator) run(ctx context.Context, cmd domain.Command, j job) domain.RunResult {
	result := domain.RunResult{Tab: j.tab, Project: j.project.ID, Command: cmd}

	ctx, span := c.tracer.Start(ctx, "execution.run",
		ports.WithAttribute("project", j.project.ID.String()),
		ports.WithAttribute("command", cmd.String()),
		ports.WithAttribute("tab", j.tab),
	)
	defer span.End()

	c.mu.Lock()
	cancelled := c.waiting[j.tab]
	delete(c.waiting, j.tab)
	if cancelled || ctx.Err() != nil {
		c.mu.Unlock()
		result.Status = domain.ExitStatus{Kind: domain.Terminated}
		c.publishFinished(result)
		return result
	}
	proc := c.runner.Start(ctx, domain.ProcessSpec{
		Dir:  j.project.Dir(),
		Args: append([]string{c.tool}, cmd.Argv()...),
		Env:  c.env,
	})
	c.live[j.tab] = proc
	c.mu.Unlock()

	for line := range proc.Lines() {
		result.Lines = append(result.Lines, line)
		c.sink.Publish(domain.LineEmitted{Tab: j.tab, Line: line})
	}
	<-proc.Done()
	result.Status = proc.Status()

	c.mu.Lock()
	delete(c.live, j.tab)
	c.mu.Unlock()

	span.SetAttribute("status", result.Status.Kind.String())
	span.SetAttribute("exit_code", result.Status.Code)
	if result.Status.Err != nil {
		span.RecordError(result.Status.Err)
	}
	c.publishFinished(result)

	if cmd.IsClean() && result.Status.Success() {
		c.recomputeSize(ctx, j.project)
	}
	return result
}

func (c *Coordinator) publishFinished(r domain.RunResult) {
	c.sink.Publish(domain.RunFinished{
		Tab:    r.Tab,
		Status: r.Status,
		Footer: Footer(c.tool, r.Status, len(r.Lines)),
	})
}

// recomputeSize measures the project's target directory in the background.
func (c *Coordinator) recomputeSize(ctx context.Context, p domain.Project) {
	ctx = context.WithoutCancel(ctx)
	c.background.Go(func() {
		size, err := c.sizer.ArtifactSize(ctx, p.TargetDir())
		if err != nil {
			c.logger.Error(zerr.With(err, "project", p.ID.String()))
			return
		}
		c.sink.Publish(domain.SizeComputed{Project: p.ID, Bytes: size, At: time.Now()})
	})
}

// Cancel terminates the run in tab. A running process is killed and reaped
// before Cancel returns; a run that has not started yet will not start.
// It reports whether the tab was still waiting or running.
func (c *Coordinator) Cancel(tab int) bool {
	c.mu.Lock()
	if proc, ok := c.live[tab]; ok {
		c.mu.Unlock()
		proc.Cancel()
		return true
	}
	_, waiting := c.waiting[tab]
	if waiting {
		c.waiting[tab] = true
	}
	c.mu.Unlock()
	return waiting
}

// CancelAll stops every execution: waiting targets never start and live
// processes are killed. It returns once every execution has finished.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	execs := make([]*Execution, 0, len(c.executions))
	for _, exec := range c.executions {
		exec.cancel()
		execs = append(execs, exec)
	}
	procs := make([]ports.Process, 0, len(c.live))
	for _, proc := range c.live {
		procs = append(procs, proc)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, proc := range procs {
		wg.Go(func() { proc.Cancel() })
	}
	wg.Wait()

	for _, exec := range execs {
		<-exec.done
	}
}

// WaitBackground blocks until pending artifact size recomputations finish.
func (c *Coordinator) WaitBackground() {
	c.background.Wait()
}
