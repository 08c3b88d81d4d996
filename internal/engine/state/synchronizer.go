// Package state reconciles events from runs and freshness checks into a
// single authoritative state and publishes immutable snapshots of it.
package state

import (
	"context"
	"sync"
	"sync/atomic"

	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.EventSink = (*Synchronizer)(nil)

const (
	defaultBuffer = 1024
	// maxBatch bounds how many queued events are folded into one snapshot.
	maxBatch = 256
)

// Synchronizer is the single writer of the application state.
type Synchronizer struct {
	events  chan domain.Event
	stopped chan struct{}
	stop    sync.Once
	state   *State
	version uint64
	current atomic.Pointer[domain.Snapshot]
	sent    atomic.Uint64
	applied uint64

	mu      sync.Mutex
	subs    []chan domain.Snapshot
	flushed uint64
	wake    chan struct{}
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithBuffer sets the capacity of the event channel.
func WithBuffer(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.events = make(chan domain.Event, n)
		}
	}
}

// NewSynchronizer creates a Synchronizer over an empty state.
func NewSynchronizer(opts ...Option) *Synchronizer {
	s := &Synchronizer{
		events:  make(chan domain.Event, defaultBuffer),
		stopped: make(chan struct{}),
		state:   NewState(),
		wake:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	snap := s.state.Snapshot(0)
	s.current.Store(&snap)
	return s
}

// Publish queues an event. It drops the event once Run has returned.
func (s *Synchronizer) Publish(ev domain.Event) {
	s.sent.Add(1)
	select {
	case s.events <- ev:
	case <-s.stopped:
	}
}

// Snapshot returns the latest published snapshot.
func (s *Synchronizer) Snapshot() domain.Snapshot {
	return *s.current.Load()
}

// Flush blocks until every event published before the call is reflected in
// the current snapshot. It fails once Run has returned.
func (s *Synchronizer) Flush(ctx context.Context) error {
	target := s.sent.Load()
	for {
		s.mu.Lock()
		flushed, wake := s.flushed, s.wake
		s.mu.Unlock()
		if flushed >= target {
			return nil
		}

		select {
		case <-wake:
		case <-s.stopped:
			return zerr.Wrap(domain.ErrSynchronizerStopped, "flush")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Subscribe returns a channel that always holds the newest snapshot not yet
// received. Intermediate snapshots are dropped.
func (s *Synchronizer) Subscribe() <-chan domain.Snapshot {
	ch := make(chan domain.Snapshot, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	ch <- s.Snapshot()
	s.subs = append(s.subs, ch)
	return ch
}

// Run applies events until ctx is done. Each drained batch produces exactly
// one snapshot. An invariant violation stops the loop and is returned.
func (s *Synchronizer) Run(ctx context.Context) error {
	defer s.stop.Do(func() { close(s.stopped) })

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			if err := s.apply(ev); err != nil {
				return err
			}
			if err := s.drain(); err != nil {
				return err
			}
			s.publish()
		}
	}
}

func (s *Synchronizer) drain() error {
	for range maxBatch {
		select {
		case ev := <-s.events:
			if err := s.apply(ev); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (s *Synchronizer) apply(ev domain.Event) error {
	s.applied++
	return s.state.Apply(ev)
}

func (s *Synchronizer) publish() {
	s.version++
	snap := s.state.Snapshot(s.version)
	s.current.Store(&snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed = s.applied
	close(s.wake)
	s.wake = make(chan struct{})
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
