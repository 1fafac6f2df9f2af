// Package asyncstate implements the simpler, pre-engine async pattern: one
// asynchronous operation drives a three-state lifecycle (pending, fulfilled,
// rejected) over a plain state bag. It has none of the engine's cache keys or
// tag invalidation; it exists for screens that only ever need "load this
// list, show a spinner, show an error".
package asyncstate

import (
	"context"
	"sync"
)

// DefaultErrorMessage is stored when a failure carries no message of its own.
const DefaultErrorMessage = "request failed"

// State is the bag a consumer renders. Loading is true only between an
// invocation's start and its settle; Err is cleared at the start of each
// attempt.
type State[T any] struct {
	Items   []T
	Loading bool
	Err     string
}

// All returns the current items.
func (s State[T]) All() []T {
	return s.Items
}

// Where returns the items matching pred. Pure projection, no memoization.
func (s State[T]) Where(pred func(T) bool) []T {
	var out []T
	for _, item := range s.Items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// IsLoading reports whether an invocation is in flight.
func (s State[T]) IsLoading() bool {
	return s.Loading
}

// Error returns the last failure message, or "".
func (s State[T]) Error() string {
	return s.Err
}

// Runner drives the lifecycle. Each Run invocation walks idle -> pending ->
// fulfilled|rejected; success replaces Items wholesale with the operation's
// result.
//
// Concurrent invocations are guarded by default: each Run takes a generation
// ticket, and a settle whose ticket has been superseded leaves the state
// untouched, so the most recently started invocation always wins. The
// historical pattern this replaces had no guard (whichever invocation settled
// last won); WithoutGenerationGuard restores that behavior for callers that
// depend on it.
type Runner[T any] struct {
	mu    sync.Mutex
	state State[T]
	gen   uint64
	guard bool

	cbs    map[uint64]func(State[T])
	nextCB uint64
}

// Option configures a Runner.
type Option func(*settings)

type settings struct {
	guard bool
}

// WithoutGenerationGuard disables the concurrent-invocation guard,
// reproducing the legacy last-settle-wins race.
func WithoutGenerationGuard() Option {
	return func(s *settings) { s.guard = false }
}

// NewRunner creates a Runner. The generation guard is on unless disabled.
func NewRunner[T any](opts ...Option) *Runner[T] {
	s := settings{guard: true}
	for _, opt := range opts {
		opt(&s)
	}
	return &Runner[T]{
		guard: s.guard,
		cbs:   make(map[uint64]func(State[T])),
	}
}

// Run executes op and folds its outcome into the state. The operation's
// error (if any) is returned to the caller even when a superseded settle
// leaves the state untouched.
func (r *Runner[T]) Run(ctx context.Context, op func(ctx context.Context) ([]T, error)) error {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.state.Loading = true
	r.state.Err = ""
	snap, cbs := r.snapshotLocked()
	r.mu.Unlock()
	r.notify(snap, cbs)

	items, err := op(ctx)

	r.mu.Lock()
	if r.guard && gen != r.gen {
		// A newer invocation owns the state now; drop this settle.
		r.mu.Unlock()
		return err
	}
	r.state.Loading = false
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = DefaultErrorMessage
		}
		r.state.Err = msg
	} else {
		r.state.Items = items
	}
	snap, cbs = r.snapshotLocked()
	r.mu.Unlock()
	r.notify(snap, cbs)

	return err
}

// Snapshot returns the current state.
func (r *Runner[T]) Snapshot() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnChange registers a callback invoked with a snapshot after every state
// transition. The returned function unregisters it.
func (r *Runner[T]) OnChange(cb func(State[T])) func() {
	r.mu.Lock()
	r.nextCB++
	id := r.nextCB
	r.cbs[id] = cb
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.cbs, id)
		r.mu.Unlock()
	}
}

func (r *Runner[T]) snapshotLocked() (State[T], []func(State[T])) {
	cbs := make([]func(State[T]), 0, len(r.cbs))
	for _, cb := range r.cbs {
		cbs = append(cbs, cb)
	}
	return r.state, cbs
}

func (r *Runner[T]) notify(snap State[T], cbs []func(State[T])) {
	for _, cb := range cbs {
		cb(snap)
	}
}
