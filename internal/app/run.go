package app

import (
	"context"

	"go.trai.ch/wash/internal/adapters/detector"
	"go.trai.ch/wash/internal/adapters/linear"
	"go.trai.ch/wash/internal/core/domain"
)

// RunOptions configuration for the Run method.
type RunOptions struct {
	Options
	// All targets every top-level project.
	All bool
	// Exact skips fuzzy resolution of the command token.
	Exact bool
	// Projects names the selection by project name or path.
	Projects []string
}

// Run executes the command token against the selected projects.
// Without a selection every top-level project is targeted.
func (a *App) Run(ctx context.Context, token string, opts RunOptions) error {
	cmd, err := resolveCommand(token, opts.Exact)
	if err != nil {
		return err
	}

	settings, projects, err := a.load(ctx, opts.Options)
	if err != nil {
		return err
	}

	scope := domain.ScopeAll
	var selected []domain.ProjectID
	if !opts.All && len(opts.Projects) > 0 {
		scope = domain.ScopeSelected
		if selected, err = selectProjects(projects, opts.Projects); err != nil {
			return err
		}
	}
	req := domain.NewRunRequest(cmd, scope, selected)

	mode := detector.ResolveMode(detector.DetectEnvironment(), opts.OutputMode)
	if mode == detector.ModeTUI {
		return a.interactive(ctx, settings, opts.Root, projects, &req)
	}
	return a.runLinear(ctx, settings, projects, req)
}

func (a *App) runLinear(ctx context.Context, settings domain.Settings, projects []domain.Project, req domain.RunRequest) error {
	s := a.newSession(settings)
	s.start(ctx, false)

	renderer := linear.NewRenderer(a.stdout, a.stderr)
	stopRender := s.render(renderer)

	s.sync.Publish(domain.ProjectsDiscovered{Projects: projects})
	exec, err := s.coord.Execute(ctx, req, domain.NewProjectTree(projects))
	if err == nil {
		exec.Wait()
		s.coord.WaitBackground()
	}

	stopRender()
	_, settleErr := s.settle(ctx, renderer)
	if closeErr := s.close(); closeErr != nil {
		return closeErr
	}
	if err != nil {
		return err
	}
	if settleErr != nil {
		return settleErr
	}
	return exec.Err()
}
