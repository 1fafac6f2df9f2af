// Package querycache implements a client-side query/mutation cache engine
// with tag-based invalidation.
//
// # Overview
//
// The engine tracks one cache entry per (endpoint name, serialized argument)
// pair. Read endpoints (queries) declare which tags their results provide;
// write endpoints (mutations) declare which tags they invalidate. When a
// mutation settles, every live entry whose provided tags intersect the
// invalidated set goes stale: entries with active subscribers refetch in the
// background while continuing to serve the previous data, and entries without
// subscribers are dropped and lazily refetched on the next subscription.
//
// # Key Guarantees
//
//   - At most one in-flight request per cache key: concurrent subscriptions
//     to the same (endpoint, arg) share a single network call and observe the
//     same result.
//   - No loading flash on refetch: a fulfilled entry keeps its data (with
//     IsFetching set) until the replacement arrives, then swaps atomically.
//   - Generation-guarded resolution: each issued request carries a per-key
//     generation; a stale generation's response is discarded, so an older,
//     slower request can never overwrite a newer one.
//   - Errors never clear data: a failed refetch stores the error alongside
//     the previously fulfilled payload.
//
// # Basic Usage
//
// Construct a Store around a Fetcher, define endpoints, then subscribe:
//
//	store := querycache.New(client, querycache.WithCacheService(cacheService))
//
//	store.Registry().DefineQuery(querycache.QueryEndpoint{
//		Name: "getProducts",
//		Request: func(arg any) (querycache.Request, error) {
//			return querycache.Request{Method: "GET", Path: "/products"}, nil
//		},
//		Decode:       querycache.DecodeJSON[[]Product](),
//		ProvidesTags: querycache.ProvidesEntityList("Product", func(p Product) any { return p.ID }),
//	})
//
//	sub, err := store.Subscribe(ctx, "getProducts", nil, querycache.Options{})
//	defer sub.Close()
//	stop := sub.OnChange(func(e querycache.Entry) { render(e) })
//	defer stop()
//
// # Tag Policy for List/Item Duality
//
// A collection query provides one tag per returned item plus the sentinel
// {type, "LIST"}; a get-by-id query provides the single item tag. Create
// mutations invalidate only the sentinel (no specific-id entry knows the new
// item yet); update and delete mutations invalidate both the item tag and the
// sentinel. This is what lets a list view refresh automatically after an
// unrelated single-item edit, with no manual cache surgery.
//
// # Keep-Warm Window
//
// With a cache.CacheService installed (see WithCacheService), data whose last
// subscriber closed is parked for the service's TTL and seeds the next
// subscription for the key without a round trip. Invalidation purges parked
// data too, so staleness semantics are unchanged.
//
// # Failure Semantics
//
// The engine performs no retries and swallows nothing: normalized errors are
// stored on the entry (queries) or returned from Trigger and retained in
// MutationState (mutations). A mutation whose tag callback returns no tags on
// failure leaves the cache consistent with the last known good state.
//
// # See Also
//
// Package cache for key serialization and the TTL store; package httpclient
// for the Fetcher implementation with base-URL routing and the error
// taxonomy; package products for a complete endpoint registration example.
package querycache
