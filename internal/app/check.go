package app

import (
	"context"
	"slices"

	"go.trai.ch/wash/internal/adapters/linear"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/zerr"
)

// CheckOptions configuration for the Check method.
type CheckOptions struct {
	Options
	// Refresh ignores cached lookups.
	Refresh bool
	// Projects limits the check to the named projects.
	Projects []string
}

// Check looks up every dependency of the selected projects and reports
// which ones are outdated.
func (a *App) Check(ctx context.Context, opts CheckOptions) error {
	settings, projects, err := a.load(ctx, opts.Options)
	if err != nil {
		return err
	}

	targets := projects
	if len(opts.Projects) > 0 {
		ids, err := selectProjects(projects, opts.Projects)
		if err != nil {
			return err
		}
		targets = slices.DeleteFunc(slices.Clone(projects), func(p domain.Project) bool {
			return !slices.Contains(ids, p.ID)
		})
	}

	s := a.newSession(settings)
	s.start(ctx, true)

	renderer := linear.NewRenderer(a.stdout, a.stderr, linear.WithChecks(true))
	stopRender := s.render(renderer)

	s.sync.Publish(domain.ProjectsDiscovered{Projects: projects})
	var queued int
	for i := range targets {
		if len(targets[i].Dependencies) == 0 {
			continue
		}
		s.queue.Enqueue(&targets[i], domain.PriorityUser, opts.Refresh)
		queued++
	}
	if queued == 0 {
		a.logger.Info("no registry dependencies to check")
	}

	waitErr := s.queue.WaitIdle(ctx)
	stopRender()
	snap, settleErr := s.settle(ctx, renderer)
	if closeErr := s.close(); closeErr != nil {
		return closeErr
	}
	if waitErr != nil {
		return waitErr
	}
	if settleErr != nil {
		return settleErr
	}
	return checkErr(&snap)
}

func checkErr(snap *domain.Snapshot) error {
	var failed int
	for i := range snap.All {
		if snap.All[i].CheckStatus() == domain.ProjectCheckFailed {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return zerr.With(zerr.Wrap(domain.ErrChecksFailed, "some lookups failed"), "projects", failed)
}
