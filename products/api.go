// Package products binds the product-inventory HTTP API to the query cache
// engine: the entity model, the endpoint descriptors with their tag policy,
// and a typed facade over the engine's dynamic surface.
package products

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goliatone/go-query-cache/httpclient"
	"github.com/goliatone/go-query-cache/querycache"
)

// Endpoint names as registered on the store.
const (
	EndpointProducts            = "getProducts"
	EndpointSearch              = "searchProducts"
	EndpointProduct             = "getProduct"
	EndpointNeedsClassification = "getNeedsClassification"
	EndpointAddProduct          = "addProduct"
	EndpointUpdateProduct       = "updateProduct"
	EndpointDeleteProduct       = "deleteProduct"
	EndpointClassifyProducts    = "classifyProducts"
)

// Tag types used by the product endpoints.
const (
	TagProduct        = "Product"
	TagClassification = "Classification"
)

// API is the typed facade over the engine for product screens. Create it once
// (it registers every endpoint on the store) and share it.
type API struct {
	store       *querycache.Store
	addMut      *querycache.Mutation
	updateMut   *querycache.Mutation
	deleteMut   *querycache.Mutation
	classifyMut *querycache.Mutation
}

// New registers the product endpoints on store and returns the facade.
func New(store *querycache.Store) (*API, error) {
	if err := register(store.Registry()); err != nil {
		return nil, err
	}

	a := &API{store: store}
	var err error
	if a.addMut, err = store.Mutation(EndpointAddProduct); err != nil {
		return nil, err
	}
	if a.updateMut, err = store.Mutation(EndpointUpdateProduct); err != nil {
		return nil, err
	}
	if a.deleteMut, err = store.Mutation(EndpointDeleteProduct); err != nil {
		return nil, err
	}
	if a.classifyMut, err = store.Mutation(EndpointClassifyProducts); err != nil {
		return nil, err
	}
	return a, nil
}

// register defines every product endpoint with its request builder, decoder,
// and tag callbacks. The tag policy follows the list/item duality: list
// queries provide per-item tags plus the collection sentinel, so a mutation
// on one item refreshes both the item view and any list view.
func register(r *querycache.Registry) error {
	productListTags := querycache.ProvidesEntityList(TagProduct, func(p Product) any { return p.ID })

	queries := []querycache.QueryEndpoint{
		{
			Name: EndpointProducts,
			Request: func(arg any) (querycache.Request, error) {
				return querycache.Request{Method: "GET", Path: "/products"}, nil
			},
			Decode:       querycache.DecodeJSON[[]Product](),
			ProvidesTags: productListTags,
		},
		{
			Name: EndpointSearch,
			Request: func(arg any) (querycache.Request, error) {
				q, ok := arg.(string)
				if !ok {
					return querycache.Request{}, fmt.Errorf("products: search expects a string query, got %T", arg)
				}
				return querycache.Request{
					Method: "GET",
					Path:   "/products/search",
					Query:  url.Values{"q": []string{q}},
				}, nil
			},
			Decode:       querycache.DecodeJSON[[]Product](),
			ProvidesTags: productListTags,
		},
		{
			Name: EndpointProduct,
			Request: func(arg any) (querycache.Request, error) {
				id, ok := arg.(int64)
				if !ok {
					return querycache.Request{}, fmt.Errorf("products: get expects an int64 id, got %T", arg)
				}
				return querycache.Request{Method: "GET", Path: fmt.Sprintf("/products/%d", id)}, nil
			},
			Decode:       querycache.DecodeJSON[Product](),
			ProvidesTags: querycache.ProvidesEntityByArg(TagProduct),
		},
		{
			Name: EndpointNeedsClassification,
			Request: func(arg any) (querycache.Request, error) {
				return querycache.Request{Method: "GET", Path: "/products/needs-classification"}, nil
			},
			Decode: querycache.DecodeJSON[[]int64](),
			ProvidesTags: func(result, arg any) []querycache.Tag {
				return []querycache.Tag{querycache.ListTag(TagClassification)}
			},
		},
	}

	mutations := []querycache.MutationEndpoint{
		{
			Name: EndpointAddProduct,
			Request: func(arg any) (querycache.Request, error) {
				req, ok := arg.(ProductRequest)
				if !ok {
					return querycache.Request{}, fmt.Errorf("products: add expects a ProductRequest, got %T", arg)
				}
				return querycache.Request{Method: "POST", Path: "/products", Body: req}, nil
			},
			Decode: querycache.DecodeJSON[Product](),
			// A freshly created product is unknown to every specific-id
			// entry, so only the collection sentinel goes stale.
			InvalidatesTags: querycache.InvalidatesList(TagProduct),
		},
		{
			Name: EndpointUpdateProduct,
			Request: func(arg any) (querycache.Request, error) {
				p, ok := arg.(Product)
				if !ok {
					return querycache.Request{}, fmt.Errorf("products: update expects a Product, got %T", arg)
				}
				return querycache.Request{Method: "PATCH", Path: fmt.Sprintf("/products/%d", p.ID), Body: p}, nil
			},
			Decode: querycache.DecodeJSON[Product](),
			InvalidatesTags: func(result any, err error, arg any) []querycache.Tag {
				if err != nil {
					return nil
				}
				p := arg.(Product)
				return []querycache.Tag{
					querycache.EntityTag(TagProduct, p.ID),
					querycache.ListTag(TagProduct),
				}
			},
		},
		{
			Name: EndpointDeleteProduct,
			Request: func(arg any) (querycache.Request, error) {
				id, ok := arg.(int64)
				if !ok {
					return querycache.Request{}, fmt.Errorf("products: delete expects an int64 id, got %T", arg)
				}
				return querycache.Request{Method: "DELETE", Path: fmt.Sprintf("/products/%d", id)}, nil
			},
			Decode:          querycache.DecodeJSON[DeleteResult](),
			InvalidatesTags: querycache.InvalidatesEntityByArg(TagProduct),
		},
		{
			Name: EndpointClassifyProducts,
			Request: func(arg any) (querycache.Request, error) {
				ids, ok := arg.([]int64)
				if !ok {
					return querycache.Request{}, fmt.Errorf("products: classify expects []int64 ids, got %T", arg)
				}
				return querycache.Request{
					Method: "POST",
					Path:   httpclient.ClassifyPrefix + "/products",
					Body:   ClassifyRequest{ProductIDs: ids},
				}, nil
			},
			InvalidatesTags: func(result any, err error, arg any) []querycache.Tag {
				if err != nil {
					return nil
				}
				return []querycache.Tag{querycache.ListTag(TagClassification)}
			},
		},
	}

	for _, q := range queries {
		if err := r.DefineQuery(q); err != nil {
			return err
		}
	}
	for _, m := range mutations {
		if err := r.DefineMutation(m); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeProducts subscribes to the full product list.
func (a *API) SubscribeProducts(ctx context.Context, opts querycache.Options) (*querycache.Subscription, error) {
	return a.store.Subscribe(ctx, EndpointProducts, nil, opts)
}

// SubscribeSearch subscribes to a search result list for query q.
func (a *API) SubscribeSearch(ctx context.Context, q string, opts querycache.Options) (*querycache.Subscription, error) {
	return a.store.Subscribe(ctx, EndpointSearch, q, opts)
}

// SubscribeProduct subscribes to a single product by id.
func (a *API) SubscribeProduct(ctx context.Context, id int64, opts querycache.Options) (*querycache.Subscription, error) {
	return a.store.Subscribe(ctx, EndpointProduct, id, opts)
}

// SubscribeNeedsClassification subscribes to the ids awaiting classification.
func (a *API) SubscribeNeedsClassification(ctx context.Context, opts querycache.Options) (*querycache.Subscription, error) {
	return a.store.Subscribe(ctx, EndpointNeedsClassification, nil, opts)
}

// Products fetches the full list once, read-through the cache.
func (a *API) Products(ctx context.Context) ([]Product, error) {
	return queryOnce[[]Product](ctx, a.store, EndpointProducts, nil)
}

// Search fetches one search result list, read-through the cache.
func (a *API) Search(ctx context.Context, q string) ([]Product, error) {
	return queryOnce[[]Product](ctx, a.store, EndpointSearch, q)
}

// Product fetches one product by id, read-through the cache.
func (a *API) Product(ctx context.Context, id int64) (Product, error) {
	return queryOnce[Product](ctx, a.store, EndpointProduct, id)
}

// NeedsClassification fetches the ids awaiting classification.
func (a *API) NeedsClassification(ctx context.Context) ([]int64, error) {
	return queryOnce[[]int64](ctx, a.store, EndpointNeedsClassification, nil)
}

// AddProduct validates req, creates the product, and invalidates the list
// sentinel so any subscribed list view refreshes on its own.
func (a *API) AddProduct(ctx context.Context, req ProductRequest) (Product, error) {
	if err := req.Validate(); err != nil {
		return Product{}, err
	}
	return trigger[Product](ctx, a.addMut, req)
}

// UpdateProduct validates p and patches it in place by id.
func (a *API) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return trigger[Product](ctx, a.updateMut, p)
}

// DeleteProduct removes the product with the given id.
func (a *API) DeleteProduct(ctx context.Context, id int64) (DeleteResult, error) {
	return trigger[DeleteResult](ctx, a.deleteMut, id)
}

// ClassifyProducts submits ids to the classification backend and invalidates
// the needs-classification view.
func (a *API) ClassifyProducts(ctx context.Context, ids []int64) error {
	_, err := a.classifyMut.Trigger(ctx, ids)
	return err
}

// AddState exposes the add mutation's lifecycle flags.
func (a *API) AddState() querycache.MutationState { return a.addMut.State() }

// UpdateState exposes the update mutation's lifecycle flags.
func (a *API) UpdateState() querycache.MutationState { return a.updateMut.State() }

// DeleteState exposes the delete mutation's lifecycle flags.
func (a *API) DeleteState() querycache.MutationState { return a.deleteMut.State() }

func queryOnce[T any](ctx context.Context, store *querycache.Store, endpoint string, arg any) (T, error) {
	var zero T
	v, err := store.QueryOnce(ctx, endpoint, arg)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("products: %s returned unexpected type %T", endpoint, v)
	}
	return typed, nil
}

func trigger[T any](ctx context.Context, m *querycache.Mutation, arg any) (T, error) {
	var zero T
	v, err := m.Trigger(ctx, arg)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("products: mutation returned unexpected type %T", v)
	}
	return typed, nil
}
