package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.trai.ch/wash/internal/adapters/linear"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/ui/style"
	"golang.org/x/sync/errgroup"
)

// sizeParallelism bounds concurrent target directory walks.
const sizeParallelism = 4

// ListOptions configuration for the List method.
type ListOptions = Options

// List prints every discovered project with its build output size and the
// freshness status known from the cache. It never contacts the registry.
func (a *App) List(ctx context.Context, opts ListOptions) error {
	settings, projects, err := a.load(ctx, opts)
	if err != nil {
		return err
	}

	s := a.newSession(settings)
	s.start(ctx, false)

	s.sync.Publish(domain.ProjectsDiscovered{Projects: projects})
	s.queue.Schedule(ctx, projects)
	a.measure(ctx, s, projects)

	snap, settleErr := s.settle(ctx, linear.NewRenderer(a.stdout, a.stderr))
	if closeErr := s.close(); closeErr != nil {
		return closeErr
	}
	if settleErr != nil {
		return settleErr
	}

	_, _ = fmt.Fprintln(a.stdout, projectTable(snap.All))
	return nil
}

// measure publishes the artifact size of every top-level project.
func (a *App) measure(ctx context.Context, s *session, projects []domain.Project) {
	var g errgroup.Group
	g.SetLimit(sizeParallelism)
	for i := range projects {
		p := projects[i]
		if !p.IsTopLevel() {
			continue
		}
		g.Go(func() error {
			size, err := a.sizer.ArtifactSize(ctx, p.TargetDir())
			if err != nil {
				a.logger.Warn(p.Name + ": " + err.Error())
				return nil
			}
			s.sync.Publish(domain.SizeComputed{Project: p.ID, Bytes: size, At: time.Now()})
			return nil
		})
	}
	_ = g.Wait()
}

func projectTable(projects []domain.Project) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("NAME", "ROLE", "DEPS", "STATUS", "TARGET", "PATH")

	for i := range projects {
		p := &projects[i]
		name := p.Name
		if p.Role == domain.RoleWorkspaceMember {
			name = "  " + name
		}
		size := "-"
		if p.ArtifactSize > 0 {
			size = style.Bytes(p.ArtifactSize)
		}
		status := p.CheckStatus().String()
		if n := len(p.OutdatedDependencies()); n > 0 {
			status += " (" + strconv.Itoa(n) + ")"
		}
		t.Row(name, p.Role.String(), strconv.Itoa(len(p.Dependencies)), status, size, p.Dir())
	}
	return t.Render()
}
