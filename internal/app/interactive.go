package app

import (
	"context"
	"errors"
	"path/filepath"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/wash/internal/adapters/palette"
	"go.trai.ch/wash/internal/adapters/tui"
	"go.trai.ch/wash/internal/adapters/watcher"
	"go.trai.ch/wash/internal/core/domain"
)

// UIOptions configuration for the Interactive method.
type UIOptions = Options

// Interactive opens the terminal interface over the discovered projects.
func (a *App) Interactive(ctx context.Context, opts UIOptions) error {
	settings, projects, err := a.load(ctx, opts)
	if err != nil {
		return err
	}
	return a.interactive(ctx, settings, opts.Root, projects, nil)
}

func (a *App) interactive(
	ctx context.Context,
	settings domain.Settings,
	root string,
	projects []domain.Project,
	initial *domain.RunRequest,
) error {
	s := a.newSession(settings)
	s.start(ctx, true)

	actions := &uiActions{ctx: ctx, session: s}
	model := tui.NewModel(actions, palette.New(), a.stderr)
	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, a.teaOptions...)
	renderer := tui.NewRenderer(model, opts...)

	if err := renderer.Start(ctx); err != nil {
		return errors.Join(err, s.close())
	}
	stopRender := s.render(renderer)
	go func() {
		<-s.stopped
		_ = renderer.Stop()
	}()

	s.sync.Publish(domain.ProjectsDiscovered{Projects: projects})
	if settings.BackgroundChecks {
		s.queue.Schedule(ctx, projects)
	}
	if initial != nil {
		// Targets resolve against the snapshot, which must include the discovery.
		if err := s.sync.Flush(ctx); err != nil {
			renderer.Notify(err.Error())
		} else if err := actions.execute(*initial); err != nil {
			renderer.Notify(err.Error())
		}
	}

	stopWatch := func() {}
	if settings.Watch {
		stopWatch = a.watch(ctx, s, root, projects, renderer.Notify)
	}

	err := renderer.Wait()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	stopWatch()
	stopRender()
	return errors.Join(err, s.close())
}

// uiActions connects key presses to the engines.
type uiActions struct {
	ctx     context.Context //nolint:containedctx // lives as long as the interface
	session *session
}

func (u *uiActions) Publish(ev domain.Event) {
	u.session.sync.Publish(ev)
}

func (u *uiActions) Run(cmd domain.Command, selected []domain.ProjectID) error {
	return u.execute(domain.NewRunRequest(cmd, domain.ScopeSelected, selected))
}

func (u *uiActions) execute(req domain.RunRequest) error {
	snap := u.session.sync.Snapshot()
	_, err := u.session.coord.Execute(u.ctx, req, snap.Tree())
	return err
}

// Check enqueues user checks. A workspace root also checks its members.
func (u *uiActions) Check(ids []domain.ProjectID, force bool) {
	snap := u.session.sync.Snapshot()
	tree := snap.Tree()

	var targets []domain.ProjectID
	for _, id := range ids {
		targets = append(targets, id)
		targets = append(targets, tree.Members(id)...)
	}
	slices.Sort(targets)
	for _, id := range slices.Compact(targets) {
		p, ok := tree.Lookup(id)
		if !ok || len(p.Dependencies) == 0 {
			continue
		}
		u.session.queue.Enqueue(&p, domain.PriorityUser, force)
	}
}

func (u *uiActions) CancelTab(tab int) {
	go u.session.coord.Cancel(tab)
}

// watch rescans when a manifest or lockfile changes and reschedules the
// affected projects. The returned function stops watching.
func (a *App) watch(
	ctx context.Context,
	s *session,
	root string,
	projects []domain.Project,
	warn func(string),
) func() {
	w, err := a.newWatcher()
	if err != nil {
		warn(err.Error())
		return func() {}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	if err := w.Start(watchCtx, projectDirs(projects)); err != nil {
		cancel()
		_ = w.Stop()
		warn(err.Error())
		return func() {}
	}

	debouncer := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		if projects, ok := a.rescan(watchCtx, s, root, paths, warn); ok {
			w.Add(projectDirs(projects))
		}
	})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range w.Events() {
			debouncer.Add(ev.Path)
		}
	}()

	return func() {
		cancel()
		_ = w.Stop()
		<-done
		debouncer.Stop()
	}
}

// rescan rediscovers the projects under root and returns them.
func (a *App) rescan(
	ctx context.Context,
	s *session,
	root string,
	paths []string,
	warn func(string),
) ([]domain.Project, bool) {
	if root == "" {
		root = "."
	}
	projects, err := a.source.Discover(ctx, root)
	if err != nil {
		warn("rescan failed: " + err.Error())
		return nil, false
	}
	s.sync.Publish(domain.ProjectsDiscovered{Projects: projects})
	if s.settings.BackgroundChecks {
		s.queue.Schedule(ctx, affected(projects, paths))
	}
	return projects, true
}

// affected returns the projects whose manifest or lockfile is among paths.
func affected(projects []domain.Project, paths []string) []domain.Project {
	var out []domain.Project
	for _, p := range projects {
		for _, path := range paths {
			if filepath.Dir(path) == p.Dir() || (p.LockfilePath != "" && p.LockfilePath == path) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func projectDirs(projects []domain.Project) []string {
	dirs := make([]string, 0, len(projects))
	for _, p := range projects {
		dirs = append(dirs, p.Dir())
	}
	return dirs
}

var _ tui.Actions = (*uiActions)(nil)
