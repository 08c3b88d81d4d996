package freshness_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/wash/internal/core/ports/mocks"
	"go.trai.ch/wash/internal/engine/freshness"
	"go.uber.org/mock/gomock"
)

type queueTestMocks struct {
	store         *mocks.MockCacheStore
	registry      *mocks.MockRegistry
	fingerprinter *mocks.MockFingerprinter
	logger        *mocks.MockLogger
	sink          *recorder
}

func setupQueueTest(t *testing.T, opts ...freshness.Option) (*freshness.Queue, queueTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := queueTestMocks{
		store:         mocks.NewMockCacheStore(ctrl),
		registry:      mocks.NewMockRegistry(ctrl),
		fingerprinter: mocks.NewMockFingerprinter(ctrl),
		logger:        mocks.NewMockLogger(ctrl),
		sink:          &recorder{},
	}

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	tracer := mocks.NewMockTracer(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		},
	).AnyTimes()

	q := freshness.NewQueue(m.store, m.registry, m.fingerprinter, m.sink, tracer, m.logger, opts...)
	return q, m
}

// start runs the dispatch loop until the returned stop function is called
// or the test ends.
func start(t *testing.T, q *freshness.Queue) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			assert.NoError(t, <-done)
		})
	}
	t.Cleanup(stop)
	return stop
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) Finished(id domain.ProjectID) []domain.CheckFinished {
	var out []domain.CheckFinished
	for _, ev := range r.Events() {
		if f, ok := ev.(domain.CheckFinished); ok && f.Project == id {
			out = append(out, f)
		}
	}
	return out
}

func (r *recorder) Started(id domain.ProjectID) int {
	n := 0
	for _, ev := range r.Events() {
		if s, ok := ev.(domain.CheckStarted); ok && s.Project == id {
			n++
		}
	}
	return n
}

func project(name string, deps ...domain.Dependency) domain.Project {
	id := domain.ProjectID("/src/" + name)
	return domain.Project{
		ID:           id,
		Name:         name,
		LockfilePath: id.String() + "/" + domain.LockfileName,
		Dependencies: deps,
	}
}

func dep(name, locked string) domain.Dependency {
	return domain.Dependency{Name: name, LockedVersion: locked}
}

func byName(deps []domain.Dependency) map[string]domain.Dependency {
	out := make(map[string]domain.Dependency, len(deps))
	for _, d := range deps {
		out[d.Name] = d
	}
	return out
}

func TestQueue_ScheduleResolvesCoveredProjectsFromCache(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t)
		now := time.Now()

		covered := project("covered", dep("serde", "1.0.0"), dep("tokio", "1.45.0"))
		partial := project("partial", dep("log", "0.4.0"))
		empty := project("empty")

		entry := domain.NewCacheEntry(7)
		entry.Dependencies["serde"] = domain.CachedVersion{LatestVersion: "1.0.219", CachedAt: now.Add(-time.Minute)}
		entry.Dependencies["tokio"] = domain.CachedVersion{LatestVersion: "1.45.0", CachedAt: now.Add(-2 * time.Minute)}

		m.fingerprinter.EXPECT().Fingerprint(covered.LockfilePath).Return(uint64(7), nil)
		m.fingerprinter.EXPECT().Fingerprint(partial.LockfilePath).Return(uint64(8), nil)
		m.store.EXPECT().Load(covered.ID, uint64(7)).Return(entry, nil)
		m.store.EXPECT().Load(partial.ID, uint64(8)).Return(nil, nil)

		queued := q.Schedule(t.Context(), []domain.Project{covered, partial, empty})
		assert.Equal(t, 1, queued)

		finished := m.sink.Finished(covered.ID)
		require.Len(t, finished, 1)
		assert.True(t, finished[0].FromCache)
		assert.Zero(t, m.sink.Started(covered.ID), "a fully cached project never shows a checking state")

		deps := byName(finished[0].Dependencies)
		assert.Equal(t, domain.DependencyOutdated, deps["serde"].Status)
		assert.Equal(t, domain.DependencyFresh, deps["tokio"].Status)
		assert.True(t, deps["serde"].CheckedAt.Equal(now.Add(-time.Minute)), "cached results keep their check time")
		assert.True(t, finished[0].StartedAt.Equal(now.Add(-2*time.Minute)),
			"a cached result is stamped with its oldest lookup, never with the current time")

		pending := q.Pending()
		require.Len(t, pending, 1)
		assert.Equal(t, partial.ID, pending[0].Project)
		assert.Equal(t, domain.PriorityBackground, pending[0].Priority)
		assert.Empty(t, m.sink.Finished(empty.ID))
	})
}

func TestQueue_PartiallyCachedProjectChecksOnlyStaleDependencies(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t)
		begin := time.Now()
		serdeAt := begin.Add(-time.Minute)
		tokioAt := begin.Add(-3 * time.Minute)

		p := project("app", dep("serde", "1.0.0"), dep("tokio", "1.45.0"), dep("anyhow", "1.0.0"))
		entry := domain.NewCacheEntry(7)
		entry.Dependencies["serde"] = domain.CachedVersion{LatestVersion: "1.0.219", CachedAt: serdeAt}
		entry.Dependencies["tokio"] = domain.CachedVersion{LatestVersion: "1.45.0", CachedAt: tokioAt}

		m.fingerprinter.EXPECT().Fingerprint(p.LockfilePath).Return(uint64(7), nil).AnyTimes()
		m.store.EXPECT().Load(p.ID, uint64(7)).Return(entry, nil).AnyTimes()
		m.registry.EXPECT().LatestVersion(gomock.Any(), "anyhow").DoAndReturn(
			func(context.Context, string) (string, error) {
				time.Sleep(time.Second)
				return "1.0.98", nil
			},
		).Times(1)

		var saved *domain.CacheEntry
		m.store.EXPECT().Save(p.ID, gomock.Any()).DoAndReturn(func(_ domain.ProjectID, e *domain.CacheEntry) error {
			saved = e
			return nil
		})

		start(t, q)
		require.Equal(t, 1, q.Schedule(t.Context(), []domain.Project{p}))
		require.NoError(t, q.WaitIdle(t.Context()))

		events := m.sink.Events()
		require.Len(t, events, 3)
		require.IsType(t, domain.CheckStarted{}, events[0])
		require.IsType(t, domain.CacheSaved{}, events[1])
		require.IsType(t, domain.CheckFinished{}, events[2])

		finished := events[2].(domain.CheckFinished)
		assert.False(t, finished.FromCache)
		assert.Equal(t, domain.PriorityBackground, finished.Priority)
		deps := byName(finished.Dependencies)
		assert.Equal(t, domain.DependencyOutdated, deps["serde"].Status)
		assert.Equal(t, domain.DependencyFresh, deps["tokio"].Status)
		assert.Equal(t, domain.DependencyOutdated, deps["anyhow"].Status)
		assert.Equal(t, "1.0.98", deps["anyhow"].LatestVersion)

		require.NotNil(t, saved)
		assert.Equal(t, uint64(7), saved.Fingerprint)
		require.Len(t, saved.Dependencies, 3)
		assert.True(t, saved.Dependencies["serde"].CachedAt.Equal(serdeAt))
		assert.True(t, saved.Dependencies["tokio"].CachedAt.Equal(tokioAt))
		assert.True(t, saved.Dependencies["anyhow"].CachedAt.Equal(begin.Add(time.Second)))
	})
}

func TestQueue_FailedLookupsAreNotPersisted(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t)
		expiredAt := time.Now().Add(-10 * time.Minute)

		p := project("app", dep("serde", "1.0.0"), dep("log", "0.4.0"))
		entry := domain.NewCacheEntry(7)
		entry.Dependencies["serde"] = domain.CachedVersion{LatestVersion: "1.0.100", CachedAt: expiredAt}

		m.fingerprinter.EXPECT().Fingerprint(gomock.Any()).Return(uint64(7), nil).AnyTimes()
		m.store.EXPECT().Load(p.ID, uint64(7)).Return(entry, nil).AnyTimes()
		m.registry.EXPECT().LatestVersion(gomock.Any(), "serde").Return("", domain.ErrLookupFailed)
		m.registry.EXPECT().LatestVersion(gomock.Any(), "log").Return("0.4.27", nil)
		m.logger.EXPECT().Warn(gomock.Any())

		var saved *domain.CacheEntry
		m.store.EXPECT().Save(p.ID, gomock.Any()).DoAndReturn(func(_ domain.ProjectID, e *domain.CacheEntry) error {
			saved = e
			return nil
		})

		start(t, q)
		assert.Equal(t, domain.Queued, q.Enqueue(&p, domain.PriorityUser, false))
		require.NoError(t, q.WaitIdle(t.Context()))

		finished := m.sink.Finished(p.ID)
		require.Len(t, finished, 1)
		deps := byName(finished[0].Dependencies)
		assert.Equal(t, domain.DependencyFailed, deps["serde"].Status)
		assert.Empty(t, deps["serde"].LatestVersion, "a failed check never shows stale data")
		assert.Equal(t, domain.DependencyOutdated, deps["log"].Status)

		require.NotNil(t, saved)
		assert.Equal(t, "1.0.100", saved.Dependencies["serde"].LatestVersion)
		assert.True(t, saved.Dependencies["serde"].CachedAt.Equal(expiredAt), "a failure never advances cached_at")
		assert.Equal(t, "0.4.27", saved.Dependencies["log"].LatestVersion)
	})
}

func TestQueue_EnqueuePriorities(t *testing.T) {
	t.Parallel()

	q, _ := setupQueueTest(t)
	a, b, c := project("a", dep("x", "1.0.0")), project("b", dep("x", "1.0.0")), project("c", dep("x", "1.0.0"))
	u := project("u", dep("x", "1.0.0"))

	assert.Equal(t, domain.Queued, q.Enqueue(&a, domain.PriorityBackground, false))
	assert.Equal(t, domain.Queued, q.Enqueue(&b, domain.PriorityBackground, false))
	assert.Equal(t, domain.Queued, q.Enqueue(&c, domain.PriorityBackground, false))
	assert.Equal(t, domain.Queued, q.Enqueue(&u, domain.PriorityUser, false))

	assert.Equal(t, domain.Promoted, q.Enqueue(&c, domain.PriorityUser, true))
	assert.Equal(t, domain.Duplicate, q.Enqueue(&a, domain.PriorityBackground, false))
	assert.Equal(t, domain.Duplicate, q.Enqueue(&u, domain.PriorityUser, false))
	assert.Equal(t, domain.Duplicate, q.Enqueue(&c, domain.PriorityUser, false))

	pending := q.Pending()
	require.Len(t, pending, 4)
	order := []domain.ProjectID{pending[0].Project, pending[1].Project, pending[2].Project, pending[3].Project}
	assert.Equal(t, []domain.ProjectID{u.ID, c.ID, a.ID, b.ID}, order,
		"a promoted item waits behind earlier user items but ahead of every background item")
	assert.Equal(t, domain.PriorityUser, pending[1].Priority)
	assert.True(t, pending[1].Force)
}

func TestQueue_DispatchOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t, freshness.WithConcurrency(1))
		projects := []domain.Project{
			project("a", dep("a", "1.0.0")),
			project("b", dep("b", "1.0.0")),
			project("c", dep("c", "1.0.0")),
		}

		m.fingerprinter.EXPECT().Fingerprint(gomock.Any()).Return(uint64(1), nil).AnyTimes()
		m.store.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
		m.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		var mu sync.Mutex
		var order []string
		m.registry.EXPECT().LatestVersion(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, name string) (string, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return "1.0.0", nil
			},
		).Times(3)

		q.Enqueue(&projects[0], domain.PriorityBackground, false)
		q.Enqueue(&projects[1], domain.PriorityBackground, false)
		q.Enqueue(&projects[2], domain.PriorityUser, false)

		start(t, q)
		require.NoError(t, q.WaitIdle(t.Context()))
		assert.Equal(t, []string{"c", "a", "b"}, order)
	})
}

func TestQueue_ConcurrencyLimitAndSingleFlightPerProject(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t, freshness.WithConcurrency(2))
		projects := []domain.Project{
			project("p0", dep("d0", "1.0.0")),
			project("p1", dep("d1", "1.0.0")),
			project("p2", dep("d2", "1.0.0")),
			project("p3", dep("d3", "1.0.0")),
			project("p4", dep("d4", "1.0.0")),
		}

		m.fingerprinter.EXPECT().Fingerprint(gomock.Any()).Return(uint64(1), nil).AnyTimes()
		m.store.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
		m.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		var active, peak atomic.Int32
		m.registry.EXPECT().LatestVersion(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, string) (string, error) {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Second)
				active.Add(-1)
				return "1.0.0", nil
			},
		).Times(len(projects))

		for i := range projects {
			q.Enqueue(&projects[i], domain.PriorityBackground, false)
		}
		start(t, q)
		synctest.Wait()

		assert.True(t, q.InFlight(projects[0].ID))
		for range 3 {
			assert.Equal(t, domain.InFlight, q.Enqueue(&projects[0], domain.PriorityUser, true))
		}
		assert.Len(t, q.Pending(), 3)

		require.NoError(t, q.WaitIdle(t.Context()))
		assert.Equal(t, int32(2), peak.Load())
		for _, p := range projects {
			assert.Len(t, m.sink.Finished(p.ID), 1)
		}
	})
}

func TestQueue_CheckTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t, freshness.WithCheckTimeout(2*time.Second))
		p := project("slow", dep("serde", "1.0.0"))

		m.fingerprinter.EXPECT().Fingerprint(gomock.Any()).Return(uint64(1), nil).AnyTimes()
		m.store.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
		m.store.EXPECT().Save(p.ID, gomock.Any()).DoAndReturn(func(_ domain.ProjectID, e *domain.CacheEntry) error {
			assert.Empty(t, e.Dependencies)
			return nil
		})
		m.registry.EXPECT().LatestVersion(gomock.Any(), "serde").DoAndReturn(
			func(ctx context.Context, _ string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		)
		m.logger.EXPECT().Warn(gomock.Any())

		begin := time.Now()
		start(t, q)
		q.Enqueue(&p, domain.PriorityUser, false)
		require.NoError(t, q.WaitIdle(t.Context()))

		assert.Equal(t, 2*time.Second, time.Since(begin))
		finished := m.sink.Finished(p.ID)
		require.Len(t, finished, 1)
		assert.Equal(t, domain.DependencyFailed, finished[0].Dependencies[0].Status)
	})
}

func TestQueue_ForceIgnoresValidCache(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t)
		p := project("app", dep("serde", "1.0.0"))
		entry := domain.NewCacheEntry(7)
		entry.Dependencies["serde"] = domain.CachedVersion{LatestVersion: "1.0.0", CachedAt: time.Now()}

		m.fingerprinter.EXPECT().Fingerprint(gomock.Any()).Return(uint64(7), nil).AnyTimes()
		m.store.EXPECT().Load(p.ID, uint64(7)).Return(entry, nil).AnyTimes()
		m.store.EXPECT().Save(p.ID, gomock.Any()).Return(nil)
		m.registry.EXPECT().LatestVersion(gomock.Any(), "serde").Return("1.0.1", nil)

		start(t, q)
		q.Enqueue(&p, domain.PriorityUser, true)
		require.NoError(t, q.WaitIdle(t.Context()))

		assert.Equal(t, 1, m.sink.Started(p.ID))
		finished := m.sink.Finished(p.ID)
		require.Len(t, finished, 1)
		assert.Equal(t, "1.0.1", finished[0].Dependencies[0].LatestVersion)
	})
}

func TestQueue_CancellationStillPublishesResult(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t)
		p := project("app", dep("serde", "1.0.0"))

		m.fingerprinter.EXPECT().Fingerprint(gomock.Any()).Return(uint64(1), nil).AnyTimes()
		m.store.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
		m.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		m.registry.EXPECT().LatestVersion(gomock.Any(), "serde").DoAndReturn(
			func(ctx context.Context, _ string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		)
		m.logger.EXPECT().Warn(gomock.Any())

		stop := start(t, q)
		q.Enqueue(&p, domain.PriorityUser, false)
		synctest.Wait()
		stop()

		finished := m.sink.Finished(p.ID)
		require.Len(t, finished, 1)
		assert.Equal(t, domain.DependencyFailed, finished[0].Dependencies[0].Status)
	})
}

func TestQueue_FingerprintFailureSkipsSave(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t)
		p := project("app", dep("serde", "1.0.0"))

		m.fingerprinter.EXPECT().Fingerprint(p.LockfilePath).Return(uint64(0), errors.New("permission denied"))
		m.logger.EXPECT().Error(gomock.Any())
		m.registry.EXPECT().LatestVersion(gomock.Any(), "serde").Return("1.0.0", nil)

		start(t, q)
		q.Enqueue(&p, domain.PriorityBackground, false)
		require.NoError(t, q.WaitIdle(t.Context()))

		finished := m.sink.Finished(p.ID)
		require.Len(t, finished, 1)
		assert.Equal(t, domain.DependencyFresh, finished[0].Dependencies[0].Status)
		for _, ev := range m.sink.Events() {
			_, saved := ev.(domain.CacheSaved)
			assert.False(t, saved, "nothing is persisted without a fingerprint")
		}
	})
}

func TestQueue_ScheduleLeavesInFlightChecksAlone(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		q, m := setupQueueTest(t)
		cachedAt := time.Now().Add(-time.Minute)

		p := project("app", dep("serde", "1.0.0"))
		entry := domain.NewCacheEntry(7)
		entry.Dependencies["serde"] = domain.CachedVersion{LatestVersion: "1.0.0", CachedAt: cachedAt}

		m.fingerprinter.EXPECT().Fingerprint(p.LockfilePath).Return(uint64(7), nil).AnyTimes()
		m.store.EXPECT().Load(p.ID, uint64(7)).Return(entry, nil).AnyTimes()
		m.store.EXPECT().Save(p.ID, gomock.Any()).Return(nil)

		release := make(chan struct{})
		m.registry.EXPECT().LatestVersion(gomock.Any(), "serde").DoAndReturn(
			func(context.Context, string) (string, error) {
				<-release
				return "1.2.0", nil
			},
		)

		start(t, q)
		require.Equal(t, domain.Queued, q.Enqueue(&p, domain.PriorityUser, true))
		synctest.Wait()
		require.True(t, q.InFlight(p.ID))

		assert.Zero(t, q.Schedule(t.Context(), []domain.Project{p}))
		assert.Empty(t, m.sink.Finished(p.ID), "the cache never reports over a running check")

		close(release)
		require.NoError(t, q.WaitIdle(t.Context()))

		finished := m.sink.Finished(p.ID)
		require.Len(t, finished, 1)
		assert.False(t, finished[0].FromCache)
		assert.Equal(t, "1.2.0", byName(finished[0].Dependencies)["serde"].LatestVersion)
		assert.True(t, finished[0].StartedAt.After(cachedAt))
	})
}
