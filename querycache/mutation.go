package querycache

import (
	"context"
	"fmt"
	"sync"
)

// MutationState mirrors the lifecycle flags a mutation consumer renders.
type MutationState struct {
	// Loading is true while a trigger is in flight.
	Loading bool

	// Success is true once the last trigger settled without error.
	Success bool

	// Err is the last trigger's error, or nil.
	Err error
}

// Mutation is a handle on a mutation endpoint. Triggers are never
// deduplicated: every call issues a request.
type Mutation struct {
	store *Store
	ep    MutationEndpoint

	mu    sync.Mutex
	state MutationState
}

// Mutation returns a handle for the named mutation endpoint.
func (s *Store) Mutation(name string) (*Mutation, error) {
	ep, ok := s.registry.Mutation(name)
	if !ok {
		return nil, fmt.Errorf("querycache: unknown mutation endpoint %q", name)
	}
	return &Mutation{store: s, ep: ep}, nil
}

// Mutate is a convenience for a one-off trigger of the named mutation.
func (s *Store) Mutate(ctx context.Context, name string, arg any) (any, error) {
	m, err := s.Mutation(name)
	if err != nil {
		return nil, err
	}
	return m.Trigger(ctx, arg)
}

// Trigger issues the mutation request and waits for it to settle. On
// settlement the endpoint's InvalidatesTags callback runs (with the result or
// the error) and the resulting tag set is invalidated on the store. The
// returned error is the normalized failure; it is also retained in State.
func (m *Mutation) Trigger(ctx context.Context, arg any) (any, error) {
	m.mu.Lock()
	m.state = MutationState{Loading: true}
	m.mu.Unlock()

	var result any
	req, err := m.ep.Request(arg)
	if err == nil {
		var body []byte
		body, err = m.store.fetcher.Do(ctx, req)
		if err == nil {
			if m.ep.Decode != nil {
				result, err = m.ep.Decode(body)
			} else {
				result = body
			}
		}
	}

	var tags []Tag
	if m.ep.InvalidatesTags != nil {
		tags = m.ep.InvalidatesTags(result, err, arg)
	}
	m.store.Invalidate(ctx, tags...)

	m.mu.Lock()
	m.state = MutationState{Success: err == nil, Err: err}
	m.mu.Unlock()

	return result, err
}

// State returns the mutation's current lifecycle flags.
func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
