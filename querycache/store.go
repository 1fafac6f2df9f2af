package querycache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-query-cache/cache"
)

// entryState is the live, mutable backing of one cache entry. All mutation is
// funneled through the Store; nothing outside this package touches it.
type entryState struct {
	mu       sync.Mutex
	key      string
	endpoint string
	arg      any

	status  Status
	data    any
	hasData bool
	err     error
	tags    []Tag

	// gen counts issued requests for this key. A response whose generation
	// no longer matches is discarded, so an older, slower request can never
	// overwrite the key after a newer request resolved.
	gen      uint64
	inflight bool

	// detached marks an entry that has been removed from the store's entry
	// table. An in-flight response still lands on it (and gets parked), but
	// new subscribers get a fresh state.
	detached bool

	// subs maps subscription id -> callback id -> callback. A subscription
	// with no callbacks still counts as an active subscriber.
	subs    map[uint64]map[uint64]func(Entry)
	nextSub uint64
	nextCB  uint64
}

func newEntryState(key, endpoint string, arg any) *entryState {
	return &entryState{
		key:      key,
		endpoint: endpoint,
		arg:      arg,
		subs:     make(map[uint64]map[uint64]func(Entry)),
	}
}

// snapshotLocked builds an Entry snapshot. Caller holds e.mu.
func (e *entryState) snapshotLocked() Entry {
	return Entry{
		Status:     e.status,
		Data:       e.data,
		Err:        e.err,
		Tags:       append([]Tag(nil), e.tags...),
		IsFetching: e.inflight,
	}
}

// callbacksLocked flattens all registered callbacks. Caller holds e.mu.
func (e *entryState) callbacksLocked() []func(Entry) {
	var cbs []func(Entry)
	for _, set := range e.subs {
		for _, cb := range set {
			cbs = append(cbs, cb)
		}
	}
	return cbs
}

// dispatch invokes callbacks with a snapshot. Must be called without holding
// any entry lock; callbacks are free to call back into the store.
func dispatch(entry Entry, cbs []func(Entry)) {
	for _, cb := range cbs {
		cb(entry)
	}
}

// Store is the query/mutation cache engine. It tracks one entry per
// (endpoint, serialized argument) pair, deduplicates concurrent identical
// requests, and invalidates entries through declared tag relationships.
//
// A Store is an explicit, injectable object: construct it at application
// start and pass it to whatever consumes it. There is no package-level state.
type Store struct {
	registry *Registry
	fetcher  Fetcher
	keys     cache.KeySerializer
	logger   *slog.Logger

	entries *xsync.MapOf[string, *entryState]

	// parked holds data for keys whose subscribers have all gone away, for
	// the cache service's TTL window. parkedTags mirrors the provided tags
	// of parked keys so invalidation can purge them without a live entry.
	parked     cache.CacheService
	parkedTags *xsync.MapOf[string, []Tag]
}

// Option configures a Store.
type Option func(*Store)

// WithKeySerializer overrides the default cache key serializer.
func WithKeySerializer(ks cache.KeySerializer) Option {
	return func(s *Store) { s.keys = ks }
}

// WithCacheService installs the TTL store used to keep results warm after
// their last subscriber is gone and to serve one-shot queries read-through.
// Without it, unsubscribed data is simply dropped and one-shot queries always
// hit the network.
func WithCacheService(cs cache.CacheService) Option {
	return func(s *Store) { s.parked = cs }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store that executes requests through fetcher.
func New(fetcher Fetcher, opts ...Option) *Store {
	s := &Store{
		registry:   NewRegistry(),
		fetcher:    fetcher,
		keys:       cache.NewDefaultKeySerializer(),
		logger:     slog.Default(),
		entries:    xsync.NewMapOf[string, *entryState](),
		parkedTags: xsync.NewMapOf[string, []Tag](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the store's endpoint registry for defining endpoints.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Options configures a subscription.
type Options struct {
	// Skip suppresses the initial request. The entry's prior data, if any,
	// is retained untouched until SetSkip(false).
	Skip bool
}

// Subscribe registers interest in a query endpoint call. Unless Skip is set,
// it seeds the entry from the keep-warm store or issues a fetch. Concurrent
// subscriptions to the same (endpoint, arg) share a single in-flight request.
// Callers must Close the subscription when done.
func (s *Store) Subscribe(ctx context.Context, endpoint string, arg any, opts Options) (*Subscription, error) {
	if _, ok := s.registry.Query(endpoint); !ok {
		return nil, fmt.Errorf("querycache: unknown query endpoint %q", endpoint)
	}

	key := s.keys.SerializeKey(endpoint, arg)
	e := s.acquire(key, endpoint, arg)

	e.mu.Lock()
	e.nextSub++
	subID := e.nextSub
	e.subs[subID] = make(map[uint64]func(Entry))
	sub := &Subscription{store: s, state: e, id: subID, skip: opts.Skip}
	needFetch := false
	if !opts.Skip {
		needFetch = s.seedLocked(ctx, e)
	}
	e.mu.Unlock()

	if needFetch {
		s.fetch(ctx, e, false)
	}
	return sub, nil
}

// acquire returns the live entry state for key, creating one if needed and
// retiring detached states that have not been swept out of the table yet.
func (s *Store) acquire(key, endpoint string, arg any) *entryState {
	for {
		e, _ := s.entries.LoadOrCompute(key, func() *entryState {
			return newEntryState(key, endpoint, arg)
		})
		e.mu.Lock()
		detached := e.detached
		e.mu.Unlock()
		if !detached {
			return e
		}
		s.sweep(key, e)
	}
}

// sweep removes e from the entry table iff it is still the resident state,
// so a concurrently created replacement is never clobbered.
func (s *Store) sweep(key string, e *entryState) {
	s.entries.Compute(key, func(old *entryState, loaded bool) (*entryState, bool) {
		if loaded && old == e {
			return nil, true
		}
		return old, !loaded
	})
}

// seedLocked prepares an uninitialized entry: either seeds it from the
// keep-warm store or reports that a fetch is needed. Caller holds e.mu.
func (s *Store) seedLocked(ctx context.Context, e *entryState) bool {
	if e.status != StatusUninitialized {
		return false
	}
	if data, tags, ok := s.unpark(ctx, e.key); ok {
		e.status = StatusFulfilled
		e.data = data
		e.hasData = true
		e.tags = tags
		return false
	}
	return true
}

// fetch issues a request for e unless one is already in flight. With force
// set (invalidation refetches) a new request is issued regardless; the
// generation counter then guarantees that only the newest response lands.
func (s *Store) fetch(ctx context.Context, e *entryState, force bool) {
	ep, ok := s.registry.Query(e.endpoint)
	if !ok {
		return
	}

	e.mu.Lock()
	if e.detached || (e.inflight && !force) {
		e.mu.Unlock()
		return
	}
	e.inflight = true
	e.gen++
	gen := e.gen
	if !e.hasData {
		e.status = StatusPending
	}
	snap := e.snapshotLocked()
	cbs := e.callbacksLocked()
	e.mu.Unlock()

	dispatch(snap, cbs)
	go s.resolve(ctx, ep, e, gen)
}

// resolve runs the request for generation gen and applies the outcome.
func (s *Store) resolve(ctx context.Context, ep QueryEndpoint, e *entryState, gen uint64) {
	extra := ExtraTagsFrom(ctx)
	result, err := s.execQuery(ctx, ep, e.arg)

	e.mu.Lock()
	if gen != e.gen {
		// A newer request owns this key; its resolution already happened or
		// is on the way. Dropping ours keeps last-issued data authoritative.
		e.mu.Unlock()
		s.logger.Debug("discarding stale response", "endpoint", e.endpoint, "key", e.key, "generation", gen)
		return
	}
	e.inflight = false
	if err != nil {
		e.status = StatusRejected
		e.err = err
	} else {
		e.status = StatusFulfilled
		e.data = result
		e.hasData = true
		e.err = nil
		var tags []Tag
		if ep.ProvidesTags != nil {
			tags = ep.ProvidesTags(result, e.arg)
		}
		e.tags = dedupeTags(append(tags, extra...))
	}
	park := e.status == StatusFulfilled && (e.detached || len(e.subs) == 0)
	key, data := e.key, e.data
	tags := append([]Tag(nil), e.tags...)
	snap := e.snapshotLocked()
	cbs := e.callbacksLocked()
	e.mu.Unlock()

	if park {
		s.park(key, data, tags)
	}
	dispatch(snap, cbs)
}

// execQuery builds, executes, and decodes one query round trip.
func (s *Store) execQuery(ctx context.Context, ep QueryEndpoint, arg any) (any, error) {
	req, err := ep.Request(arg)
	if err != nil {
		return nil, err
	}
	body, err := s.fetcher.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if ep.Decode == nil {
		return body, nil
	}
	return ep.Decode(body)
}

// QueryOnce resolves a query without a subscription. A live entry with data
// answers immediately; otherwise the call goes read-through the cache
// service, so repeated one-shot reads within the TTL share one round trip.
func (s *Store) QueryOnce(ctx context.Context, endpoint string, arg any) (any, error) {
	ep, ok := s.registry.Query(endpoint)
	if !ok {
		return nil, fmt.Errorf("querycache: unknown query endpoint %q", endpoint)
	}

	key := s.keys.SerializeKey(endpoint, arg)
	if e, ok := s.entries.Load(key); ok {
		e.mu.Lock()
		if e.hasData && !e.detached {
			data := e.data
			e.mu.Unlock()
			return data, nil
		}
		e.mu.Unlock()
	}

	if s.parked == nil {
		return s.execQuery(ctx, ep, arg)
	}
	return s.parked.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		result, err := s.execQuery(ctx, ep, arg)
		if err != nil {
			return nil, err
		}
		var tags []Tag
		if ep.ProvidesTags != nil {
			tags = ep.ProvidesTags(result, arg)
		}
		tags = dedupeTags(append(tags, ExtraTagsFrom(ctx)...))
		if len(tags) > 0 {
			s.parkedTags.Store(key, tags)
		}
		return result, nil
	})
}

// Invalidate marks every entry whose provided tags intersect the given set
// stale. Entries with active subscribers refetch in the background and keep
// serving the previous data until the refetch resolves; entries without
// subscribers (including parked data) are dropped and lazily refetched on
// the next subscription.
func (s *Store) Invalidate(ctx context.Context, tags ...Tag) {
	if len(tags) == 0 {
		return
	}
	set := make(map[Tag]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}

	var refetch []*entryState
	var drop []*entryState
	s.entries.Range(func(key string, e *entryState) bool {
		e.mu.Lock()
		if tagsIntersect(e.tags, set) {
			if len(e.subs) > 0 {
				refetch = append(refetch, e)
			} else {
				e.detached = true
				drop = append(drop, e)
			}
		}
		e.mu.Unlock()
		return true
	})

	s.parkedTags.Range(func(key string, ptags []Tag) bool {
		if tagsIntersect(ptags, set) {
			s.purge(ctx, key)
		}
		return true
	})

	for _, e := range drop {
		s.sweep(e.key, e)
		s.purge(ctx, e.key)
	}

	s.logger.Debug("invalidated tags", "tags", tags, "refetch", len(refetch), "dropped", len(drop))

	// Background refetches outlive the mutation's context; cancellation of
	// the trigger must not abort them.
	refetchCtx := context.WithoutCancel(ctx)
	for _, e := range refetch {
		s.purge(ctx, e.key)
		s.fetch(refetchCtx, e, true)
	}
}

// park stores data for a fully unsubscribed key in the cache service.
func (s *Store) park(key string, data any, tags []Tag) {
	if s.parked == nil {
		return
	}
	s.parked.Set(context.Background(), key, data)
	s.parkedTags.Store(key, tags)
}

// unpark retrieves parked data and its tags, if still within the TTL window.
func (s *Store) unpark(ctx context.Context, key string) (any, []Tag, bool) {
	if s.parked == nil {
		return nil, nil, false
	}
	data, ok := s.parked.Get(ctx, key)
	if !ok {
		return nil, nil, false
	}
	tags, _ := s.parkedTags.Load(key)
	return data, append([]Tag(nil), tags...), true
}

// purge drops a key from the keep-warm store and its tag mirror.
func (s *Store) purge(ctx context.Context, key string) {
	if s.parked != nil {
		_ = s.parked.Delete(ctx, key)
	}
	s.parkedTags.Delete(key)
}
