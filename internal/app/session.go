package app

import (
	"context"

	"go.trai.ch/wash/internal/adapters/cas"
	"go.trai.ch/wash/internal/adapters/registry"
	"go.trai.ch/wash/internal/adapters/shell"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/wash/internal/engine/execution"
	"go.trai.ch/wash/internal/engine/freshness"
	"go.trai.ch/wash/internal/engine/state"
	"golang.org/x/sync/errgroup"
)

// session holds the engines built from one set of settings.
type session struct {
	settings domain.Settings
	sync     *state.Synchronizer
	store    *cas.Store
	queue    *freshness.Queue
	coord    *execution.Coordinator

	cancel  context.CancelFunc
	stopped chan struct{}
	g       errgroup.Group
}

func (a *App) newSession(settings domain.Settings) *session {
	sync := state.NewSynchronizer()
	store := cas.NewStore(settings.CacheDir)
	client := registry.NewClient(settings.RegistryURL, settings.LookupTimeout)
	runner := shell.NewRunner(a.logger, shell.WithPTY(settings.PTY))

	queue := freshness.NewQueue(store, client, a.fingerprinter, sync, a.tracer, a.logger,
		freshness.WithConcurrency(settings.Concurrency),
		freshness.WithTTL(settings.CacheTTL),
		freshness.WithCheckTimeout(settings.CheckTimeout),
	)
	coord := execution.NewCoordinator(runner, a.sizer, sync, a.tracer, a.logger,
		execution.WithTool(settings.Tool),
	)

	return &session{
		settings: settings,
		sync:     sync,
		store:    store,
		queue:    queue,
		coord:    coord,
		cancel:   func() {},
		stopped:  make(chan struct{}),
	}
}

// start runs the synchronizer and, when asked, the freshness dispatch loop.
// Both outlive ctx and stop in close.
func (s *session) start(ctx context.Context, withQueue bool) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.g.Go(func() error {
		defer close(s.stopped)
		return s.sync.Run(runCtx)
	})
	if withQueue {
		s.g.Go(func() error {
			return s.queue.Run(runCtx)
		})
	}
}

// render forwards every published snapshot to r until the returned function is called.
func (s *session) render(r ports.Renderer) func() {
	sub := s.sync.Subscribe()
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case snap := <-sub:
				r.Render(snap)
			case <-quit:
				return
			}
		}
	}()
	return func() {
		close(quit)
		<-done
	}
}

// settle waits until everything published so far is in the snapshot and
// renders it once more.
func (s *session) settle(ctx context.Context, r ports.Renderer) (domain.Snapshot, error) {
	if err := s.sync.Flush(context.WithoutCancel(ctx)); err != nil {
		return domain.Snapshot{}, err
	}
	snap := s.sync.Snapshot()
	r.Render(snap)
	return snap, nil
}

// close terminates live runs, waits for background work and stops the loops.
// It returns the synchronizer's error, if any.
func (s *session) close() error {
	s.coord.CancelAll()
	s.coord.WaitBackground()
	s.cancel()
	return s.g.Wait()
}
