package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"sync"
)

// Request is the transport-neutral description of a single HTTP call. The
// engine hands it to a Fetcher; it never talks to the network itself.
type Request struct {
	// Method is the HTTP verb (GET, POST, PATCH, DELETE).
	Method string

	// Path is the request path relative to whatever base URL the fetcher
	// resolves for it (e.g. "/products/42").
	Path string

	// Query holds optional URL query parameters.
	Query url.Values

	// Body is an optional request payload, JSON-encoded by the fetcher.
	Body any
}

// Fetcher executes a Request and returns the raw response body. Failures must
// come back as errors in a normalized form; the engine stores them verbatim.
type Fetcher interface {
	Do(ctx context.Context, req Request) ([]byte, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) ([]byte, error)

// Do implements Fetcher.
func (f FetcherFunc) Do(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}

// QueryEndpoint describes a read endpoint: how to build its request, how to
// decode its response, and which tags its results provide.
type QueryEndpoint struct {
	// Name identifies the endpoint and is the first cache key segment.
	Name string

	// Request builds the outgoing request from the caller's argument.
	Request func(arg any) (Request, error)

	// Decode turns a raw response body into the endpoint's result value.
	// When nil the raw body is stored as-is.
	Decode func(data []byte) (any, error)

	// ProvidesTags reports the tags a successful result provides. Entries
	// carrying these tags are the ones a matching invalidation marks stale.
	ProvidesTags func(result, arg any) []Tag
}

// MutationEndpoint describes a write endpoint. Mutations are never
// deduplicated; every trigger issues a request.
type MutationEndpoint struct {
	// Name identifies the endpoint.
	Name string

	// Request builds the outgoing request from the caller's argument.
	Request func(arg any) (Request, error)

	// Decode turns a raw response body into the mutation's result value.
	// When nil the raw body is returned as-is.
	Decode func(data []byte) (any, error)

	// InvalidatesTags computes the tag set to invalidate once the mutation
	// settles. It is invoked on success and on failure; callbacks that must
	// not invalidate on failure should return nil when err != nil.
	InvalidatesTags func(result any, err error, arg any) []Tag
}

// Registry maps endpoint names to their descriptors. Keeping descriptors in a
// registry (rather than ad-hoc closures at call sites) lets them be
// enumerated and unit-tested in isolation from the HTTP layer.
type Registry struct {
	mu        sync.RWMutex
	queries   map[string]QueryEndpoint
	mutations map[string]MutationEndpoint
}

// NewRegistry creates an empty endpoint registry.
func NewRegistry() *Registry {
	return &Registry{
		queries:   make(map[string]QueryEndpoint),
		mutations: make(map[string]MutationEndpoint),
	}
}

// DefineQuery registers a read endpoint. Names must be unique across queries.
func (r *Registry) DefineQuery(ep QueryEndpoint) error {
	if ep.Name == "" {
		return fmt.Errorf("querycache: query endpoint requires a name")
	}
	if ep.Request == nil {
		return fmt.Errorf("querycache: query endpoint %q requires a Request builder", ep.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.queries[ep.Name]; exists {
		return fmt.Errorf("querycache: query endpoint %q already defined", ep.Name)
	}
	r.queries[ep.Name] = ep
	return nil
}

// DefineMutation registers a write endpoint. Names must be unique across
// mutations.
func (r *Registry) DefineMutation(ep MutationEndpoint) error {
	if ep.Name == "" {
		return fmt.Errorf("querycache: mutation endpoint requires a name")
	}
	if ep.Request == nil {
		return fmt.Errorf("querycache: mutation endpoint %q requires a Request builder", ep.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.mutations[ep.Name]; exists {
		return fmt.Errorf("querycache: mutation endpoint %q already defined", ep.Name)
	}
	r.mutations[ep.Name] = ep
	return nil
}

// Query returns the query endpoint registered under name.
func (r *Registry) Query(name string) (QueryEndpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.queries[name]
	return ep, ok
}

// Mutation returns the mutation endpoint registered under name.
func (r *Registry) Mutation(name string) (MutationEndpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.mutations[name]
	return ep, ok
}

// QueryNames returns the sorted names of all registered queries.
func (r *Registry) QueryNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.queries))
	for name := range r.queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MutationNames returns the sorted names of all registered mutations.
func (r *Registry) MutationNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.mutations))
	for name := range r.mutations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeJSON returns a Decode function that unmarshals response bodies into T.
// Empty bodies decode to T's zero value.
func DecodeJSON[T any]() func(data []byte) (any, error) {
	return func(data []byte) (any, error) {
		var out T
		if len(data) == 0 {
			return out, nil
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("querycache: decode response: %w", err)
		}
		return out, nil
	}
}
