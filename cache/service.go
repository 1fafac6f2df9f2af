package cache

import (
	"context"
	"errors"
)

// ErrInvalidResultType is returned by the typed GetOrFetch helper when the
// value stored under a key does not match the requested type parameter.
var ErrInvalidResultType = errors.New("cache: result does not match requested type")

// KeySerializer builds a cache key from an endpoint name plus its argument(s).
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(endpoint string, args ...any) string
}

// FetchFn is the function signature CacheService expects when fetching from
// the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService is the TTL-bounded storage backend used by the query engine.
// It plays two roles: a read-through cache for one-shot queries, and the
// parking lot for results whose subscribers have all gone away, so that a
// returning subscriber can be seeded without a network round trip.
type CacheService interface {
	// Get returns the value stored under key, if present and not expired.
	Get(ctx context.Context, key string) (any, bool)

	// Set stores value under key with the service's configured TTL.
	Set(ctx context.Context, key string, value any)

	// Delete removes a single entry. Subsequent reads miss until re-populated.
	Delete(ctx context.Context, key string) error

	// GetOrFetch returns the cached value for key or, on a miss, invokes
	// fetchFn, stores its result and returns it. Concurrent calls for the
	// same key share a single fetch.
	GetOrFetch(ctx context.Context, key string, fetchFn func(ctx context.Context) (any, error)) (any, error)
}

// GetOrFetch is a type-safe wrapper over CacheService.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetchFn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return typed, nil
}
