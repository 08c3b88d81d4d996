package state_test

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/engine/state"
)

// runSynchronizer runs s until the test ends and returns a function that
// waits for Run to return.
func runSynchronizer(t *testing.T, s *state.Synchronizer) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	wait := sync.OnceValue(func() error { return <-done })
	t.Cleanup(func() {
		cancel()
		_ = wait()
	})
	return wait
}

func TestSynchronizer_AppliesBatchesInOnePass(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := state.NewSynchronizer()
		assert.Equal(t, uint64(0), s.Snapshot().Version)

		s.Publish(domain.ProjectsDiscovered{Projects: projects()})
		s.Publish(domain.CheckStarted{Project: "/src/app", At: t0})
		s.Publish(result(t0, domain.PriorityBackground, "1.1.0", "0.4.0"))
		runSynchronizer(t, s)
		synctest.Wait()

		snap := s.Snapshot()
		assert.Equal(t, uint64(1), snap.Version, "queued events fold into one snapshot")
		view, ok := snap.Project("/src/app")
		require.True(t, ok)
		assert.Equal(t, domain.ProjectHasUpdates, view.Status)
	})
}

func TestSynchronizer_SubscribeCoalesces(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := state.NewSynchronizer()
		sub := s.Subscribe()
		runSynchronizer(t, s)

		s.Publish(domain.ProjectsDiscovered{Projects: projects()})
		synctest.Wait()
		s.Publish(domain.ExpandToggled{Project: "/src/ws"})
		synctest.Wait()

		snap := <-sub
		assert.Equal(t, uint64(2), snap.Version, "only the newest snapshot is delivered")
		assert.Len(t, snap.Projects, 3)

		select {
		case extra := <-sub:
			t.Fatalf("unexpected snapshot %d", extra.Version)
		default:
		}
	})
}

func TestSynchronizer_InvariantViolationIsFatal(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := state.NewSynchronizer(state.WithBuffer(1))
		wait := runSynchronizer(t, s)

		s.Publish(domain.LineEmitted{Tab: 7, Line: domain.OutputLine{Seq: 1}})
		err := wait()
		require.ErrorIs(t, err, domain.ErrInvariantViolated)

		// Producers never block once the loop is gone.
		for range 3 {
			s.Publish(domain.CursorMoved{Project: "/src/app"})
		}
	})
}

func TestSynchronizer_Flush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := state.NewSynchronizer()
		require.NoError(t, s.Flush(t.Context()), "nothing published")

		runSynchronizer(t, s)
		s.Publish(domain.ProjectsDiscovered{Projects: projects()})
		s.Publish(domain.CursorMoved{Project: "/src/ws"})
		require.NoError(t, s.Flush(t.Context()))

		snap := s.Snapshot()
		assert.Equal(t, domain.ProjectID("/src/ws"), snap.Cursor)
	})
}

func TestSynchronizer_FlushAfterStop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := state.NewSynchronizer(state.WithBuffer(1))
		wait := runSynchronizer(t, s)

		s.Publish(domain.RunFinished{Tab: 3})
		require.ErrorIs(t, wait(), domain.ErrInvariantViolated)

		s.Publish(domain.CursorMoved{Project: "/src/app"})
		require.ErrorIs(t, s.Flush(t.Context()), domain.ErrSynchronizerStopped)
	})
}
