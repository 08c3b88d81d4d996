package commands_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/wash/cmd/wash/commands"
	"go.trai.ch/wash/internal/adapters/fs"
	"go.trai.ch/wash/internal/adapters/logger"
	"go.trai.ch/wash/internal/adapters/telemetry"
	"go.trai.ch/wash/internal/app"
	"go.trai.ch/wash/internal/build"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type harness struct {
	cli    *commands.CLI
	loader *mocks.MockConfigLoader
	source *mocks.MockProjectSource
	out    *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	h := &harness{
		loader: mocks.NewMockConfigLoader(ctrl),
		source: mocks.NewMockProjectSource(ctrl),
		out:    &bytes.Buffer{},
	}
	log := logger.New()
	a := app.New(
		h.loader,
		h.source,
		fs.NewHasher(),
		fs.NewSizer(fs.NewWalker()),
		telemetry.NewOTelTracer(telemetry.InstrumentationName),
		log,
	).WithOutput(h.out, h.out)

	h.cli = commands.New(a, log)
	h.cli.SetOutput(h.out)
	return h
}

func (h *harness) settings(t *testing.T) domain.Settings {
	t.Helper()
	s := domain.DefaultSettings()
	s.CacheDir = t.TempDir()
	s.Watch = false
	s.BackgroundChecks = false
	return s
}

func TestRoot_Help(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cli.SetArgs([]string{"--help"})

	require.NoError(t, h.cli.Execute(context.Background()))
	for _, sub := range []string{"run", "check", "list", "ui", "cache", "version"} {
		assert.Contains(t, h.out.String(), sub)
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cli.SetArgs([]string{"version"})

	require.NoError(t, h.cli.Execute(context.Background()))
	assert.Equal(t, "wash version "+build.Version+" (commit: "+build.Commit+", date: "+build.Date+")\n", h.out.String())
}

func TestRun_NoCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cli.SetArgs([]string{"run"})

	require.NoError(t, h.cli.Execute(context.Background()))
	assert.Contains(t, h.out.String(), "Usage:")
}

func TestRun_UnknownProject(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.loader.EXPECT().Load("wash.yaml").Return(h.settings(t), nil)
	h.source.EXPECT().Discover(gomock.Any(), "/src").Return([]domain.Project{{ID: "/src/app", Name: "app"}}, nil)

	h.cli.SetArgs([]string{"-c", "wash.yaml", "-C", "/src", "run", "-p", "nope", "build"})

	err := h.cli.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestRun_ArgumentsAfterCommandAreNotFlags(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	settings := h.settings(t)
	settings.Tool = "echo"

	dir := t.TempDir()
	h.loader.EXPECT().Load("").Return(settings, nil)
	h.source.EXPECT().Discover(gomock.Any(), ".").Return([]domain.Project{{ID: domain.ProjectID(dir), Name: "app"}}, nil)

	h.cli.SetArgs([]string{"--output", "linear", "run", "--exact", "clippy", "--", "-D", "warnings"})

	require.NoError(t, h.cli.Execute(context.Background()))
	assert.Contains(t, h.out.String(), "[app] clippy -- -D warnings\n")
}

func TestCheck_NothingToCheck(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.loader.EXPECT().Load("").Return(h.settings(t), nil)
	h.source.EXPECT().Discover(gomock.Any(), ".").Return([]domain.Project{{ID: "/src/app", Name: "app"}}, nil)

	h.cli.SetArgs([]string{"check", "--refresh"})

	require.NoError(t, h.cli.Execute(context.Background()))
	assert.Contains(t, h.out.String(), "no registry dependencies to check")
}

func TestCacheClean(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	settings := h.settings(t)
	h.loader.EXPECT().Load("").Return(settings, nil)

	h.cli.SetArgs([]string{"cache", "clean"})

	require.NoError(t, h.cli.Execute(context.Background()))
	assert.Contains(t, h.out.String(), settings.CacheDir)
}

func TestTraceFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	trace := filepath.Join(t.TempDir(), "trace.jsonl")
	h.cli.SetArgs([]string{"--trace", trace, "version"})

	require.NoError(t, h.cli.Execute(context.Background()))
	assert.FileExists(t, trace)
}

func TestUnknownSubcommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cli.SetArgs([]string{"frobnicate"})

	err := h.cli.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown command"))
}
