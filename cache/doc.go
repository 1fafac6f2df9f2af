// Package cache provides the key serialization and TTL storage that back the
// query engine.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: TTL-bounded storage with a read-through GetOrFetch path
//   - KeySerializer: Builds stable cache keys from endpoint names and arguments
//
// The query engine (package querycache) keeps its own live entry table; this
// package covers the adjacent concerns. CacheService holds data for keys whose
// subscribers have all gone away, so a returning subscriber within the TTL
// window is seeded from memory instead of the network, and it serves one-shot
// (subscription-free) queries read-through.
//
// # Basic Usage
//
// The simplest way to use the cache package is with the default key serializer:
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("getProduct", 42)
//
// For read-through access, pair a key with a fetch function:
//
//	result, err := cache.GetOrFetch(ctx, cacheService, key, func(ctx context.Context) (Product, error) {
//		return client.FetchProduct(ctx, 42)
//	})
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection to handle the argument shapes
// endpoints produce:
//
//   - Basic types: direct string representation
//   - Slices/arrays: recursive serialization of elements
//   - Maps: pairs sorted by serialized key for deterministic output
//   - Structs: exported fields as name:value pairs
//   - Anything else: JSON fallback with error handling
//
// Unlike serializers that must key on function criteria, endpoint arguments
// here are plain data, so keys are stable across process restarts and safe to
// share with out-of-process cache backends.
//
// # Custom Key Serializers
//
// You can implement your own KeySerializer for specialized key generation,
// for example to namespace keys per tenant or to hash large arguments:
//
//	type tenantKeySerializer struct {
//		tenant string
//	}
//
//	func (s *tenantKeySerializer) SerializeKey(endpoint string, args ...any) string {
//		return s.tenant + "::" + endpoint + /* serialize args */
//	}
//
// # Error Handling
//
// The package prioritizes stability over perfection. When JSON marshaling
// fails, the key serializer falls back to type information rather than
// panicking, so cache operations continue even with problematic data types.
//
// # See Also
//
// For the engine that drives invalidation and subscriptions, see the
// querycache package. For the sturdyc-backed CacheService implementation, see
// internal/cacheinfra.
package cache
