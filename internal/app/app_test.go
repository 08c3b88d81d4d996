//go:build unix

package app_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/wash/internal/adapters/cas"
	"go.trai.ch/wash/internal/adapters/fs"
	"go.trai.ch/wash/internal/adapters/telemetry"
	"go.trai.ch/wash/internal/app"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	app      *app.App
	loader   *mocks.MockConfigLoader
	source   *mocks.MockProjectSource
	logger   *mocks.MockLogger
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	settings domain.Settings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		loader: mocks.NewMockConfigLoader(ctrl),
		source: mocks.NewMockProjectSource(ctrl),
		logger: mocks.NewMockLogger(ctrl),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	f.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Error(gomock.Any()).AnyTimes()

	f.settings = domain.DefaultSettings()
	f.settings.CacheDir = t.TempDir()
	f.settings.Watch = false
	f.settings.BackgroundChecks = false

	f.app = app.New(
		f.loader,
		f.source,
		fs.NewHasher(),
		fs.NewSizer(fs.NewWalker()),
		telemetry.NewOTelTracer(telemetry.InstrumentationName),
		f.logger,
	).WithOutput(f.stdout, f.stderr).WithTeaOptions(
		tea.WithInput(strings.NewReader("")),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
		tea.WithoutRenderer(),
	)
	return f
}

func (f *fixture) expectLoad(projects ...domain.Project) {
	f.loader.EXPECT().Load("").Return(f.settings, nil)
	f.source.EXPECT().Discover(gomock.Any(), ".").Return(projects, nil)
}

func standalone(t *testing.T, name string, deps ...domain.Dependency) domain.Project {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, domain.DirPerm))

	lock := filepath.Join(dir, domain.LockfileName)
	require.NoError(t, os.WriteFile(lock, []byte("version = 4\n# "+name+"\n"), domain.FilePerm))

	return domain.Project{
		ID:           domain.ProjectID(dir),
		Name:         name,
		LockfilePath: lock,
		Dependencies: deps,
	}
}

func TestApp_Run(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.settings.Tool = "echo"
	f.expectLoad(standalone(t, "app"), standalone(t, "lib"))

	err := f.app.Run(t.Context(), "test", app.RunOptions{Options: app.Options{OutputMode: "linear"}})
	require.NoError(t, err)

	assert.Contains(t, f.stdout.String(), "[app] test\n")
	assert.Contains(t, f.stdout.String(), "[lib] test\n")
	assert.Contains(t, f.stderr.String(), "$ echo test (in ")
	assert.Contains(t, f.stderr.String(), "Finished successfully")
}

func TestApp_Run_Selection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.settings.Tool = "echo"
	f.expectLoad(standalone(t, "app"), standalone(t, "lib"))

	err := f.app.Run(t.Context(), "rel", app.RunOptions{
		Options:  app.Options{OutputMode: "linear"},
		Projects: []string{"lib"},
	})
	require.NoError(t, err)

	assert.NotContains(t, f.stdout.String(), "[app]")
	assert.Contains(t, f.stdout.String(), "--release\n", "the token resolves through the palette")
}

func TestApp_Run_Failure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.settings.Tool = "false"
	f.expectLoad(standalone(t, "app"))

	err := f.app.Run(t.Context(), "build", app.RunOptions{Options: app.Options{OutputMode: "linear"}})
	require.ErrorIs(t, err, domain.ErrRunFailed)
	assert.Contains(t, f.stderr.String(), "Failed with exit code 1")
}

func TestApp_Run_InvalidInput(t *testing.T) {
	t.Parallel()

	t.Run("unknown project", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.expectLoad(standalone(t, "app"))

		err := f.app.Run(t.Context(), "build", app.RunOptions{Projects: []string{"nope"}})
		require.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("unknown command", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		err := f.app.Run(t.Context(), "zzzz", app.RunOptions{})
		require.ErrorIs(t, err, domain.ErrUnknownCommand)
	})
}

func registry(t *testing.T, versions map[string]string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		name := strings.TrimPrefix(r.URL.Path, "/crates/")
		v, ok := versions[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"crate":{"max_stable_version":"`+v+`","max_version":"`+v+`"}}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestApp_Check(t *testing.T) {
	t.Parallel()

	srv, hits := registry(t, map[string]string{"serde": "1.0.219", "log": "0.4.20"})
	project := standalone(t, "app",
		domain.Dependency{Name: "serde", LockedVersion: "1.0.0"},
		domain.Dependency{Name: "log", LockedVersion: "0.4.20"},
	)

	f := newFixture(t)
	f.settings.RegistryURL = srv.URL
	f.loader.EXPECT().Load("").Return(f.settings, nil).Times(3)
	f.source.EXPECT().Discover(gomock.Any(), ".").Return([]domain.Project{project}, nil).Times(3)

	require.NoError(t, f.app.Check(t.Context(), app.CheckOptions{}))
	assert.Contains(t, f.stdout.String(), "● 1 of 2 dependencies outdated")
	assert.Contains(t, f.stdout.String(), "serde 1.0.0 → 1.0.219")
	assert.Equal(t, int64(2), hits.Load())

	f.stdout.Reset()
	require.NoError(t, f.app.Check(t.Context(), app.CheckOptions{}))
	assert.Contains(t, f.stdout.String(), "● 1 of 2 dependencies outdated")
	assert.Equal(t, int64(2), hits.Load(), "a second check is served from the cache")

	require.NoError(t, f.app.Check(t.Context(), app.CheckOptions{Refresh: true}))
	assert.Equal(t, int64(4), hits.Load(), "refresh bypasses the cache")
}

func TestApp_Check_Failures(t *testing.T) {
	t.Parallel()

	srv, _ := registry(t, map[string]string{})
	project := standalone(t, "app", domain.Dependency{Name: "serde", LockedVersion: "1.0.0"})

	f := newFixture(t)
	f.settings.RegistryURL = srv.URL
	f.expectLoad(project)

	err := f.app.Check(t.Context(), app.CheckOptions{})
	require.ErrorIs(t, err, domain.ErrChecksFailed)
	assert.Contains(t, f.stdout.String(), "✗ 1 of 1 lookups failed")
}

func TestApp_List(t *testing.T) {
	t.Parallel()

	project := standalone(t, "app", domain.Dependency{Name: "serde", LockedVersion: "1.0.0"})
	target := filepath.Join(project.Dir(), domain.TargetDirName, "debug")
	require.NoError(t, os.MkdirAll(target, domain.DirPerm))
	require.NoError(t, os.WriteFile(filepath.Join(target, "app"), make([]byte, 2048), domain.FilePerm))

	f := newFixture(t)
	f.expectLoad(project)

	require.NoError(t, f.app.List(t.Context(), app.ListOptions{}))

	out := f.stdout.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "app")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "unchecked")
}

func TestApp_CleanCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	store := cas.NewStore(f.settings.CacheDir)
	require.NoError(t, store.Save("/src/app", domain.NewCacheEntry(1)))

	f.loader.EXPECT().Load("").Return(f.settings, nil)

	require.NoError(t, f.app.CleanCache(t.Context(), app.CacheOptions{}))

	entries, err := os.ReadDir(f.settings.CacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApp_Interactive_StopsWithContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.expectLoad(standalone(t, "app"))

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, f.app.Interactive(ctx, app.UIOptions{}))
}

func TestApp_Run_InteractiveStartsInitialRequest(t *testing.T) {
	t.Parallel()

	project := standalone(t, "app")
	f := newFixture(t)
	f.settings.Tool = "touch"
	f.expectLoad(project)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	err := f.app.Run(ctx, "marker", app.RunOptions{
		Options: app.Options{OutputMode: "tui"},
		Exact:   true,
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(project.Dir(), "marker"))
}

func TestApp_Interactive_WatchesDiscoveredProjects(t *testing.T) {
	t.Parallel()

	app1 := standalone(t, "app")
	lib := standalone(t, "lib")

	f := newFixture(t)
	f.settings.Watch = true
	f.loader.EXPECT().Load("").Return(f.settings, nil)

	var calls atomic.Int64
	rescans := make(chan struct{}, 8)
	f.source.EXPECT().Discover(gomock.Any(), ".").DoAndReturn(
		func(context.Context, string) ([]domain.Project, error) {
			if calls.Add(1) == 1 {
				return []domain.Project{app1}, nil
			}
			rescans <- struct{}{}
			return []domain.Project{app1, lib}, nil
		},
	).AnyTimes()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.app.Interactive(ctx, app.UIOptions{}) }()

	// touch rewrites a lockfile until a rescan is observed. Writes are spaced
	// past the debounce window so each one can settle.
	touch := func(p domain.Project) {
		t.Helper()
		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		for {
			require.NoError(t, os.WriteFile(p.LockfilePath, []byte("version = 4\n"), domain.FilePerm))
			select {
			case <-rescans:
				return
			case <-tick.C:
			case <-ctx.Done():
				t.Fatalf("no rescan after %s changed", p.Name)
			}
		}
	}

	touch(app1)
	time.Sleep(time.Second)
	for len(rescans) > 0 {
		<-rescans
	}
	touch(lib)

	cancel()
	require.NoError(t, <-done)
}
