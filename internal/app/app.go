// Package app implements the application layer for wash.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/wash/internal/adapters/palette"
	"go.trai.ch/wash/internal/adapters/watcher"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader  ports.ConfigLoader
	source        ports.ProjectSource
	fingerprinter ports.Fingerprinter
	sizer         ports.ArtifactSizer
	tracer        ports.Tracer
	logger        ports.Logger

	stdout     io.Writer
	stderr     io.Writer
	teaOptions []tea.ProgramOption
	newWatcher func() (ports.Watcher, error)
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	source ports.ProjectSource,
	fingerprinter ports.Fingerprinter,
	sizer ports.ArtifactSizer,
	tracer ports.Tracer,
	log ports.Logger,
) *App {
	a := &App{
		configLoader:  loader,
		source:        source,
		fingerprinter: fingerprinter,
		sizer:         sizer,
		tracer:        tracer,
		logger:        log,
		stdout:        os.Stdout,
		stderr:        os.Stderr,
	}
	a.newWatcher = func() (ports.Watcher, error) {
		return watcher.NewWatcher(a.logger)
	}
	return a
}

// WithTeaOptions adds bubbletea program options to the App.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// WithOutput redirects command output.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// Options are shared by every command.
type Options struct {
	// Config is an explicit settings file. Empty searches the default locations.
	Config string
	// Root is the directory scanned for projects.
	Root string
	// OutputMode is one of auto, tui or linear.
	OutputMode string
}

func (a *App) load(ctx context.Context, opts Options) (domain.Settings, []domain.Project, error) {
	settings, err := a.configLoader.Load(opts.Config)
	if err != nil {
		return domain.Settings{}, nil, zerr.Wrap(err, "failed to load configuration")
	}

	root := opts.Root
	if root == "" {
		root = "."
	}
	projects, err := a.source.Discover(ctx, root)
	if err != nil {
		return domain.Settings{}, nil, err
	}
	return settings, projects, nil
}

func resolveCommand(token string, exact bool) (domain.Command, error) {
	if exact {
		return domain.ParseCommand(token)
	}
	return palette.New().Resolve(token)
}

// selectProjects maps names or paths to project identifiers.
func selectProjects(projects []domain.Project, names []string) ([]domain.ProjectID, error) {
	ids := make([]domain.ProjectID, 0, len(names))
	for _, name := range names {
		id, ok := findProject(projects, name)
		if !ok {
			return nil, zerr.With(zerr.Wrap(domain.ErrProjectNotFound, "invalid selection"), "project", name)
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func findProject(projects []domain.Project, name string) (domain.ProjectID, bool) {
	for i := range projects {
		if projects[i].Name == name {
			return projects[i].ID, true
		}
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", false
	}
	for i := range projects {
		if projects[i].ID == domain.ProjectID(abs) {
			return projects[i].ID, true
		}
	}
	return "", false
}
