package querycache

import (
	"context"
	"sync"
)

// Subscription is a live handle on one cache entry. It decouples the engine
// from any particular UI-binding mechanism: consumers poll Get for snapshots
// or register OnChange callbacks for push-style updates.
type Subscription struct {
	store *Store
	state *entryState
	id    uint64

	mu     sync.Mutex
	skip   bool
	closed bool
}

// Get returns the current entry snapshot.
func (sub *Subscription) Get() Entry {
	e := sub.state
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// OnChange registers a callback invoked with a fresh snapshot whenever the
// entry transitions. Callbacks run synchronously on the goroutine applying
// the transition; keep them short. The returned function unregisters the
// callback.
func (sub *Subscription) OnChange(cb func(Entry)) func() {
	e := sub.state
	e.mu.Lock()
	set, ok := e.subs[sub.id]
	if !ok {
		e.mu.Unlock()
		return func() {}
	}
	e.nextCB++
	cbID := e.nextCB
	set[cbID] = cb
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		if set, ok := e.subs[sub.id]; ok {
			delete(set, cbID)
		}
		e.mu.Unlock()
	}
}

// Refetch requests a fresh fetch for the entry. Deduplication still applies:
// if a request for the key is already in flight, this is a no-op and the
// subscriber receives that request's result.
func (sub *Subscription) Refetch(ctx context.Context) {
	sub.mu.Lock()
	skip, closed := sub.skip, sub.closed
	sub.mu.Unlock()
	if skip || closed {
		return
	}
	sub.store.fetch(ctx, sub.state, false)
}

// SetSkip toggles the subscription's skip flag. Flipping from skipped to
// active behaves like a fresh subscription for the entry's argument: it seeds
// from the keep-warm store or issues a fetch if the entry has no data yet.
func (sub *Subscription) SetSkip(ctx context.Context, skip bool) {
	sub.mu.Lock()
	if sub.closed || sub.skip == skip {
		sub.mu.Unlock()
		return
	}
	sub.skip = skip
	sub.mu.Unlock()
	if skip {
		return
	}

	e := sub.state
	e.mu.Lock()
	needFetch := resumeNeedsFetchLocked(sub.store, ctx, e)
	e.mu.Unlock()
	if needFetch {
		sub.store.fetch(ctx, e, false)
	}
}

// resumeNeedsFetchLocked mirrors the Subscribe seeding path for a resumed
// subscription. Caller holds e.mu.
func resumeNeedsFetchLocked(s *Store, ctx context.Context, e *entryState) bool {
	if e.hasData || e.inflight {
		return false
	}
	return s.seedLocked(ctx, e) || e.status == StatusRejected
}

// Close releases the subscription. When the last subscriber for a key closes,
// the entry leaves the live table; fulfilled data moves to the keep-warm
// store for the TTL window, and no further background refetches are scheduled
// for the key. An in-flight request is not aborted; its result is parked on
// arrival.
func (sub *Subscription) Close() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	sub.mu.Unlock()

	e := sub.state
	s := sub.store

	e.mu.Lock()
	delete(e.subs, sub.id)
	last := len(e.subs) == 0
	var park bool
	var data any
	var tags []Tag
	if last {
		e.detached = true
		if e.status == StatusFulfilled && !e.inflight {
			park = true
			data = e.data
			tags = append([]Tag(nil), e.tags...)
		}
	}
	key := e.key
	e.mu.Unlock()

	if !last {
		return
	}
	s.sweep(key, e)
	if park {
		s.park(key, data, tags)
	}
}
