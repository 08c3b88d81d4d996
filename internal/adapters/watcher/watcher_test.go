package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/wash/internal/adapters/watcher"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/wash/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newWatcher(t *testing.T) *watcher.Watcher {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	w, err := watcher.NewWatcher(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func collectEvents(w *watcher.Watcher) <-chan ports.WatchEvent {
	out := make(chan ports.WatchEvent, 16)
	go func() {
		defer close(out)
		for ev := range w.Events() {
			out <- ev
		}
	}()
	return out
}

func TestWatcher_ReportsLockfileChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := newWatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, []string{dir}))
	events := collectEvents(w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), domain.FilePerm))
	lock := filepath.Join(dir, domain.LockfileName)
	require.NoError(t, os.WriteFile(lock, []byte("version = 4\n"), domain.FilePerm))

	select {
	case ev := <-events:
		assert.Equal(t, lock, ev.Path, "unrelated files are filtered")
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the lockfile")
	}
}

func TestWatcher_AddWatchesNewDirectories(t *testing.T) {
	t.Parallel()

	first, second := t.TempDir(), t.TempDir()
	w := newWatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx, []string{first}))
	events := collectEvents(w)

	assert.Equal(t, 1, w.Add([]string{first, second, filepath.Join(second, "missing")}),
		"watched and unwatchable directories are skipped")
	assert.Zero(t, w.Add([]string{second}))

	manifest := filepath.Join(second, domain.ManifestFileName)
	require.NoError(t, os.WriteFile(manifest, []byte("[package]\n"), domain.FilePerm))

	select {
	case ev := <-events:
		assert.Equal(t, manifest, ev.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("no event from the added directory")
	}
}

func TestWatcher_StopEndsEvents(t *testing.T) {
	t.Parallel()

	w := newWatcher(t)
	require.NoError(t, w.Start(context.Background(), []string{t.TempDir()}))
	events := collectEvents(w)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stopping twice is harmless")

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("events did not end after Stop")
	}
}

func TestWatcher_NoWatchableDirectory(t *testing.T) {
	t.Parallel()

	w := newWatcher(t)
	err := w.Start(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}
