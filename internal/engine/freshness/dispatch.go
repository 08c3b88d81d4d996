package freshness

import (
	"context"
	"errors"
	"fmt"

	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// lookupParallelism bounds concurrent registry lookups within one item.
const lookupParallelism = 8

// Run drains the queue until ctx is done, keeping at most the configured
// number of checks in flight. It returns once every in-flight check has
// published its result.
func (q *Queue) Run(ctx context.Context) error {
	finished := make(chan domain.ProjectID, q.limit)
	active := 0

	for {
		for active < q.limit && ctx.Err() == nil {
			item := q.next()
			if item == nil {
				break
			}
			active++
			go func() {
				q.process(ctx, item)
				finished <- item.Project
			}()
		}

		if ctx.Err() != nil {
			if active == 0 {
				return nil
			}
			active--
			q.done(<-finished)
			continue
		}

		select {
		case id := <-finished:
			active--
			q.done(id)
		case <-q.wake:
		case <-ctx.Done():
		}
	}
}

// process checks one item and always publishes exactly one CheckFinished.
func (q *Queue) process(ctx context.Context, item *domain.QueueItem) {
	startedAt := q.now()
	ctx, span := q.tracer.Start(ctx, "freshness.check",
		ports.WithAttribute("project", item.Project.String()),
		ports.WithAttribute("priority", item.Priority.String()),
		ports.WithAttribute("force", item.Force),
	)
	defer span.End()

	deps := item.Dependencies
	fromCache := true
	stamp := startedAt
	defer func() {
		q.sink.Publish(domain.CheckFinished{
			Project:      item.Project,
			Dependencies: deps,
			StartedAt:    stamp,
			Priority:     item.Priority,
			FromCache:    fromCache,
		})
	}()

	cache := q.loadCache(item.Project, item.LockfilePath)
	var stale []int
	deps, stale = resolveCached(item.Dependencies, cache.entry, startedAt, q.ttl, item.Force)
	span.SetAttribute("stale", len(stale))
	if len(stale) == 0 {
		stamp = oldestCheck(deps, startedAt)
		return
	}

	fromCache = false
	q.sink.Publish(domain.CheckStarted{Project: item.Project, At: startedAt})

	if err := q.lookup(ctx, deps, stale); err != nil {
		span.RecordError(err)
		q.logger.Warn(fmt.Sprintf("%s: %d of %d lookups failed, will retry",
			item.Name, countFailed(deps, stale), len(stale)))
	}

	if !cache.hashed {
		return
	}
	if err := q.store.Save(item.Project, nextEntry(cache, deps)); err != nil {
		span.RecordError(err)
		q.logger.Error(zerr.With(err, "project", item.Project.String()))
		return
	}
	q.sink.Publish(domain.CacheSaved{Project: item.Project, At: q.now()})
}

// lookup resolves deps[i] for every index in stale. Each index is written by
// exactly one goroutine.
func (q *Queue) lookup(ctx context.Context, deps []domain.Dependency, stale []int) error {
	ctx, cancel := context.WithTimeout(ctx, q.checkTimeout)
	defer cancel()

	errs := make([]error, len(stale))
	var g errgroup.Group
	g.SetLimit(lookupParallelism)
	for n, i := range stale {
		g.Go(func() error {
			latest, err := q.registry.LatestVersion(ctx, deps[i].Name)
			if err != nil {
				deps[i] = deps[i].Fail()
				errs[n] = zerr.With(err, "crate", deps[i].Name)
				return nil
			}
			deps[i] = deps[i].Resolve(latest, q.now())
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// nextEntry builds the entry to persist: successful results keep their check
// time and failed dependencies keep whatever was cached before.
func nextEntry(cache cacheState, deps []domain.Dependency) *domain.CacheEntry {
	entry := domain.NewCacheEntry(cache.fingerprint)
	for _, d := range deps {
		switch d.Status {
		case domain.DependencyFresh, domain.DependencyOutdated:
			entry.Dependencies[d.Name] = domain.CachedVersion{
				LatestVersion: d.LatestVersion,
				CachedAt:      d.CheckedAt,
			}
		default:
			if cache.entry == nil {
				continue
			}
			if old, ok := cache.entry.Dependencies[d.Name]; ok {
				entry.Dependencies[d.Name] = old
			}
		}
	}
	return entry
}

func countFailed(deps []domain.Dependency, idx []int) int {
	n := 0
	for _, i := range idx {
		if deps[i].Status == domain.DependencyFailed {
			n++
		}
	}
	return n
}
