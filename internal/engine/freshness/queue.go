// Package freshness keeps locked dependency versions checked against the registry.
//
// The Queue is a priority queue of per-project checks drained by a bounded
// dispatch loop. It never mutates project records: every outcome is published
// to the event sink as a batched CheckFinished.
package freshness

import (
	"context"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Queue schedules freshness checks with at most one check in flight per project.
type Queue struct {
	store         ports.CacheStore
	registry      ports.Registry
	fingerprinter ports.Fingerprinter
	sink          ports.EventSink
	tracer        ports.Tracer
	logger        ports.Logger

	now          func() time.Time
	limit        int
	ttl          time.Duration
	checkTimeout time.Duration

	loads singleflight.Group

	mu         sync.Mutex
	user       []*domain.QueueItem
	background []*domain.QueueItem
	inFlight   map[domain.ProjectID]struct{}
	wake       chan struct{}
	idle       chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithConcurrency sets the number of checks allowed in flight.
func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.limit = n
		}
	}
}

// WithTTL sets how long a cached lookup stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(q *Queue) {
		if ttl > 0 {
			q.ttl = ttl
		}
	}
}

// WithCheckTimeout bounds all lookups of a single item.
func WithCheckTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.checkTimeout = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// NewQueue creates an empty Queue.
func NewQueue(
	store ports.CacheStore,
	registry ports.Registry,
	fingerprinter ports.Fingerprinter,
	sink ports.EventSink,
	tracer ports.Tracer,
	logger ports.Logger,
	opts ...Option,
) *Queue {
	idle := make(chan struct{})
	close(idle)
	q := &Queue{
		store:         store,
		registry:      registry,
		fingerprinter: fingerprinter,
		sink:          sink,
		tracer:        tracer,
		logger:        logger,
		now:           time.Now,
		limit:         domain.DefaultConcurrency,
		ttl:           domain.DefaultCacheTTL,
		checkTimeout:  domain.DefaultCheckTimeout,
		inFlight:      make(map[domain.ProjectID]struct{}),
		wake:          make(chan struct{}, 1),
		idle:          idle,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Schedule applies the startup and rescan policy to a project set.
// Projects fully covered by valid cache entries are resolved immediately;
// every other project with dependencies is queued for a background check.
// It returns the number of projects that were queued.
func (q *Queue) Schedule(ctx context.Context, projects []domain.Project) int {
	ctx, span := q.tracer.Start(ctx, "freshness.schedule", ports.WithAttribute("projects", len(projects)))
	defer span.End()

	var queued atomic.Int64
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range projects {
		p := &projects[i]
		if len(p.Dependencies) == 0 {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if q.InFlight(p.ID) {
			continue
		}
		g.Go(func() error {
			cache := q.loadCache(p.ID, p.LockfilePath)
			now := q.now()
			if cache.entry.Covers(p.Dependencies, now, q.ttl) {
				deps, _ := resolveCached(p.Dependencies, cache.entry, now, q.ttl, false)
				q.publishCached(p.ID, deps)
				return nil
			}
			if q.Enqueue(p, domain.PriorityBackground, false) == domain.Queued {
				queued.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttribute("queued", int(queued.Load()))
	return int(queued.Load())
}

// publishCached reports a background result resolved entirely from the cache.
// It is skipped when a check for the project went in flight meanwhile, so the
// cached data can never clear a running check's checking state.
func (q *Queue) publishCached(id domain.ProjectID, deps []domain.Dependency) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inFlight[id]; ok {
		return
	}
	q.sink.Publish(domain.CheckFinished{
		Project:      id,
		Dependencies: deps,
		StartedAt:    oldestCheck(deps, q.now()),
		Priority:     domain.PriorityBackground,
		FromCache:    true,
	})
}

// oldestCheck returns the earliest check time among deps, or fallback when
// none was checked. Cached results are only as recent as their oldest lookup.
func oldestCheck(deps []domain.Dependency, fallback time.Time) time.Time {
	oldest := fallback
	for _, d := range deps {
		if !d.CheckedAt.IsZero() && d.CheckedAt.Before(oldest) {
			oldest = d.CheckedAt
		}
	}
	return oldest
}

// Enqueue adds a check for p. A waiting background item is promoted when a user
// check is requested; a project already in flight is never queued again.
func (q *Queue) Enqueue(p *domain.Project, priority domain.Priority, force bool) domain.EnqueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.inFlight[p.ID]; ok {
		return domain.InFlight
	}

	if i := indexOf(q.user, p.ID); i >= 0 {
		q.user[i].Force = q.user[i].Force || force
		return domain.Duplicate
	}

	if i := indexOf(q.background, p.ID); i >= 0 {
		item := q.background[i]
		item.Force = item.Force || force
		if priority != domain.PriorityUser {
			return domain.Duplicate
		}
		q.background = slices.Delete(q.background, i, i+1)
		item.Priority = domain.PriorityUser
		q.user = append(q.user, item)
		q.signal()
		return domain.Promoted
	}

	item := domain.NewQueueItem(p, priority, force, q.now())
	if priority == domain.PriorityUser {
		q.user = append(q.user, item)
	} else {
		q.background = append(q.background, item)
	}
	q.markBusy()
	q.signal()
	return domain.Queued
}

// Pending returns the waiting items in dispatch order.
func (q *Queue) Pending() []domain.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.QueueItem, 0, len(q.user)+len(q.background))
	for _, item := range q.user {
		out = append(out, *item)
	}
	for _, item := range q.background {
		out = append(out, *item)
	}
	return out
}

// InFlight reports whether a check for id is running.
func (q *Queue) InFlight(id domain.ProjectID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inFlight[id]
	return ok
}

// WaitIdle blocks until nothing is waiting or in flight.
func (q *Queue) WaitIdle(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// next moves the head of the highest non-empty class into flight.
func (q *Queue) next() *domain.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var item *domain.QueueItem
	switch {
	case len(q.user) > 0:
		item, q.user = q.user[0], q.user[1:]
	case len(q.background) > 0:
		item, q.background = q.background[0], q.background[1:]
	default:
		return nil
	}
	q.inFlight[item.Project] = struct{}{}
	return item
}

func (q *Queue) done(id domain.ProjectID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.inFlight, id)
	if len(q.user) == 0 && len(q.background) == 0 && len(q.inFlight) == 0 {
		select {
		case <-q.idle:
		default:
			close(q.idle)
		}
	}
}

// markBusy must be called with mu held.
func (q *Queue) markBusy() {
	select {
	case <-q.idle:
		q.idle = make(chan struct{})
	default:
	}
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func indexOf(items []*domain.QueueItem, id domain.ProjectID) int {
	return slices.IndexFunc(items, func(item *domain.QueueItem) bool {
		return item.Project == id
	})
}

type cacheState struct {
	fingerprint uint64
	hashed      bool
	entry       *domain.CacheEntry
}

// loadCache fingerprints the lockfile and loads the matching entry.
// Concurrent loads for the same project share one read. Failures are logged
// and reported as a miss.
func (q *Queue) loadCache(id domain.ProjectID, lockfile string) cacheState {
	v, _, _ := q.loads.Do(id.String(), func() (any, error) {
		var st cacheState
		fp, err := q.fingerprinter.Fingerprint(lockfile)
		if err != nil {
			q.logger.Error(zerr.With(err, "project", id.String()))
			return st, nil
		}
		st.fingerprint, st.hashed = fp, true

		entry, err := q.store.Load(id, fp)
		if err != nil {
			q.logger.Error(zerr.With(err, "project", id.String()))
			return st, nil
		}
		st.entry = entry
		return st, nil
	})
	return v.(cacheState)
}

// resolveCached returns deps with every valid cached result applied, plus the
// indices of the dependencies that still need a lookup.
func resolveCached(
	deps []domain.Dependency,
	entry *domain.CacheEntry,
	now time.Time,
	ttl time.Duration,
	force bool,
) ([]domain.Dependency, []int) {
	out := slices.Clone(deps)
	var stale []int
	for i, d := range out {
		if !force {
			if v, ok := entry.Lookup(d.Name, now, ttl); ok {
				out[i] = d.Resolve(v.LatestVersion, v.CachedAt)
				continue
			}
		}
		stale = append(stale, i)
	}
	return out, stale
}
