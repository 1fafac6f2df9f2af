package products_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/httpclient"
	"github.com/goliatone/go-query-cache/pkg/testsupport"
	"github.com/goliatone/go-query-cache/products"
	"github.com/goliatone/go-query-cache/querycache"
)

// newAPI wires the real client, engine, and cache service against the fake
// backends, mirroring production composition.
func newAPI(t *testing.T, server *testsupport.ProductsServer) (*products.API, *querycache.Store) {
	t.Helper()

	cfg := httpclient.DefaultConfig()
	cfg.BaseURL = server.URL()
	cfg.ClassifyBaseURL = server.ClassifyURL()
	client, err := httpclient.New(cfg)
	require.NoError(t, err)

	svc, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)

	store := querycache.New(client, querycache.WithCacheService(svc))
	api, err := products.New(store)
	require.NoError(t, err)
	return api, store
}

func seedProducts(t *testing.T) []products.Product {
	t.Helper()

	var seed []products.Product
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("products.json"), &seed)
	require.NotEmpty(t, seed)
	return seed
}

func waitProducts(t *testing.T, sub *querycache.Subscription, want int) []products.Product {
	t.Helper()

	var items []products.Product
	require.Eventually(t, func() bool {
		entry := sub.Get()
		if entry.Status != querycache.StatusFulfilled || entry.IsFetching {
			return false
		}
		var ok bool
		items, ok = entry.Data.([]products.Product)
		return ok && len(items) == want
	}, 3*time.Second, 10*time.Millisecond, "list never reached %d products", want)
	return items
}

func TestAPI_AddRefreshesSubscribedList(t *testing.T) {
	seed := seedProducts(t)
	server := testsupport.NewProductsServer(seed...)
	defer server.Close()

	api, _ := newAPI(t, server)
	ctx := context.Background()

	sub, err := api.SubscribeProducts(ctx, querycache.Options{})
	require.NoError(t, err)
	defer sub.Close()
	waitProducts(t, sub, len(seed))

	created, err := api.AddProduct(ctx, products.ProductRequest{
		Name:     "Pen",
		Price:    1.5,
		Category: "Office",
		Stock:    100,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID, "the backend assigns the id")
	require.Equal(t, "Pen", created.Name)

	// No manual refetch: the list subscription refreshes through the
	// invalidated collection sentinel.
	items := waitProducts(t, sub, len(seed)+1)
	require.Equal(t, created, items[len(items)-1])
	require.Equal(t, 2, server.Calls(testsupport.CallList))

	state := api.AddState()
	require.True(t, state.Success)
	require.NoError(t, state.Err)
}

func TestAPI_AddProduct_ValidatesBeforeSending(t *testing.T) {
	server := testsupport.NewProductsServer()
	defer server.Close()

	api, _ := newAPI(t, server)

	_, err := api.AddProduct(context.Background(), products.ProductRequest{Price: -1})
	require.Error(t, err)
	require.Equal(t, 0, server.Calls(testsupport.CallAdd), "invalid payloads never leave the client")
}

func TestAPI_UpdateRefreshesItemAndList(t *testing.T) {
	seed := seedProducts(t)
	server := testsupport.NewProductsServer(seed...)
	defer server.Close()

	api, _ := newAPI(t, server)
	ctx := context.Background()

	list, err := api.SubscribeProducts(ctx, querycache.Options{})
	require.NoError(t, err)
	defer list.Close()
	waitProducts(t, list, len(seed))

	item, err := api.SubscribeProduct(ctx, seed[0].ID, querycache.Options{})
	require.NoError(t, err)
	defer item.Close()
	require.Eventually(t, func() bool {
		e := item.Get()
		return e.Status == querycache.StatusFulfilled && !e.IsFetching
	}, 3*time.Second, 10*time.Millisecond)

	updated := seed[0]
	updated.Name = "Notebook XL"
	updated.Stock = 55
	got, err := api.UpdateProduct(ctx, updated)
	require.NoError(t, err)
	require.Equal(t, updated, got)

	// Both the item view and the list view refresh on their own.
	require.Eventually(t, func() bool {
		e := item.Get()
		p, ok := e.Data.(products.Product)
		return ok && p.Name == "Notebook XL" && !e.IsFetching
	}, 3*time.Second, 10*time.Millisecond)

	items := waitProducts(t, list, len(seed))
	require.Equal(t, "Notebook XL", items[0].Name)
	require.Equal(t, 2, server.Calls(testsupport.CallList))
	require.Equal(t, 2, server.Calls(testsupport.CallGet))
}

func TestAPI_DoubleDeleteSurfaces404(t *testing.T) {
	seed := seedProducts(t)
	server := testsupport.NewProductsServer(seed...)
	defer server.Close()

	api, _ := newAPI(t, server)
	ctx := context.Background()

	sub, err := api.SubscribeProducts(ctx, querycache.Options{})
	require.NoError(t, err)
	defer sub.Close()
	waitProducts(t, sub, len(seed))

	res, err := api.DeleteProduct(ctx, seed[0].ID)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, seed[0].ID, res.ID)
	waitProducts(t, sub, len(seed)-1)

	// The second delete fails with a plain 404; the cached list stays as it
	// is and no refetch is triggered.
	_, err = api.DeleteProduct(ctx, seed[0].ID)
	require.Error(t, err)
	require.True(t, httpclient.IsStatus(err, http.StatusNotFound))

	state := api.DeleteState()
	require.False(t, state.Success)
	require.ErrorIs(t, state.Err, err)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 2, server.Calls(testsupport.CallList), "a failed delete must not refetch the list")
	waitProducts(t, sub, len(seed)-1)
}

func TestAPI_ListKeepsDataDuringRefetch(t *testing.T) {
	seed := seedProducts(t)
	server := testsupport.NewProductsServer(seed...)
	defer server.Close()

	api, _ := newAPI(t, server)
	ctx := context.Background()

	sub, err := api.SubscribeProducts(ctx, querycache.Options{})
	require.NoError(t, err)
	defer sub.Close()
	before := waitProducts(t, sub, len(seed))

	release := server.HoldList()
	defer release()

	_, err = api.AddProduct(ctx, products.ProductRequest{
		Name:     "Pen",
		Price:    1.5,
		Category: "Office",
		Stock:    100,
	})
	require.NoError(t, err)

	// The invalidation refetch is stuck on the gate; subscribers keep the
	// previous list with no loading flash.
	entry := sub.Get()
	require.Equal(t, querycache.StatusFulfilled, entry.Status)
	require.False(t, entry.IsLoading())
	require.True(t, entry.IsFetching)
	require.Equal(t, before, entry.Data)

	release()
	waitProducts(t, sub, len(seed)+1)
}

func TestAPI_SearchReadThrough(t *testing.T) {
	seed := seedProducts(t)
	server := testsupport.NewProductsServer(seed...)
	defer server.Close()

	api, _ := newAPI(t, server)
	ctx := context.Background()

	found, err := api.Search(ctx, "lamp")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Desk Lamp", found[0].Name)

	// Same term again within the TTL answers from the cache.
	again, err := api.Search(ctx, "lamp")
	require.NoError(t, err)
	require.Equal(t, found, again)
	require.Equal(t, 1, server.Calls(testsupport.CallSearch))

	// A different term is a different cache key.
	office, err := api.Search(ctx, "notebook")
	require.NoError(t, err)
	require.Len(t, office, 1)
	require.Equal(t, 2, server.Calls(testsupport.CallSearch))
}

func TestAPI_ProductReadThrough(t *testing.T) {
	seed := seedProducts(t)
	server := testsupport.NewProductsServer(seed...)
	defer server.Close()

	api, _ := newAPI(t, server)
	ctx := context.Background()

	p, err := api.Product(ctx, seed[1].ID)
	require.NoError(t, err)
	require.Equal(t, seed[1], p)

	_, err = api.Product(ctx, seed[1].ID)
	require.NoError(t, err)
	require.Equal(t, 1, server.Calls(testsupport.CallGet))

	_, err = api.Product(ctx, int64(999))
	require.True(t, httpclient.IsStatus(err, http.StatusNotFound))
}

func TestAPI_ClassifyFlow(t *testing.T) {
	seed := seedProducts(t)
	server := testsupport.NewProductsServer(seed...)
	defer server.Close()
	server.SetNeedsClassification(1, 2, 3)

	api, _ := newAPI(t, server)
	ctx := context.Background()

	sub, err := api.SubscribeNeedsClassification(ctx, querycache.Options{})
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool {
		e := sub.Get()
		ids, ok := e.Data.([]int64)
		return ok && len(ids) == 3 && !e.IsFetching
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, api.ClassifyProducts(ctx, []int64{1, 2}))
	require.Equal(t, [][]int64{{1, 2}}, server.Classified())

	// Classification invalidates the needs-classification view; the
	// remaining id shows up without a manual refetch.
	require.Eventually(t, func() bool {
		e := sub.Get()
		ids, ok := e.Data.([]int64)
		return ok && len(ids) == 1 && ids[0] == 3 && !e.IsFetching
	}, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, 2, server.Calls(testsupport.CallNeeds))

	// The classify request went to the secondary backend with its prefix
	// stripped; the primary product data is untouched.
	require.Equal(t, 1, server.Calls(testsupport.CallClassify))
	require.Len(t, server.Products(), len(seed))
}

func TestAPI_NeedsClassificationOnce(t *testing.T) {
	server := testsupport.NewProductsServer()
	defer server.Close()
	server.SetNeedsClassification(7)

	api, _ := newAPI(t, server)

	ids, err := api.NeedsClassification(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{7}, ids)
}
