package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/framecraft/backend-store/internal/pricing"
)

type fakeStore struct {
	products   []Product
	categories []Category
	bundles    []CuratedBundle
	sections   []HomeSection
	listCalls  int
}

func (f *fakeStore) CountProducts(context.Context, ListFilter) (int64, error) {
	return int64(len(f.products)), nil
}

func (f *fakeStore) ListProducts(context.Context, ListFilter) ([]Product, error) {
	f.listCalls++
	return f.products, nil
}

func (f *fakeStore) GetProductBySlug(_ context.Context, slug string) (Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (f *fakeStore) ListProductsByIDs(_ context.Context, ids []uuid.UUID) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		for _, p := range f.products {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ListRelated(_ context.Context, categoryID uuid.UUID, excludeSlug string, limit int) ([]Product, error) {
	var out []Product
	for _, p := range f.products {
		if p.CategoryID != nil && *p.CategoryID == categoryID && p.Slug != excludeSlug && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCategories(context.Context) ([]Category, error) {
	return f.categories, nil
}

func (f *fakeStore) ListCuratedBundles(context.Context) ([]CuratedBundle, error) {
	return f.bundles, nil
}

func (f *fakeStore) ListHomeSections(context.Context) ([]HomeSection, error) {
	return f.sections, nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func testProducts() []Product {
	cat := uuid.New()
	return []Product{
		{ID: uuid.New(), Title: "Fern Study", Slug: "fern-study", ImageURL: "https://cdn.example/fern.jpg", CategoryID: &cat, IsActive: true},
		{ID: uuid.New(), Title: "Harbour Dusk", Slug: "harbour-dusk", ImageURL: "https://cdn.example/harbour.jpg", CategoryID: &cat, IsActive: true},
		{ID: uuid.New(), Title: "Alpine Morning", Slug: "alpine-morning", ImageURL: "https://cdn.example/alpine.jpg", CategoryID: &cat, IsActive: true},
	}
}

func TestListProductsCachesDefaultPage(t *testing.T) {
	store := &fakeStore{products: testProducts()}
	svc, err := NewService(ServiceConfig{Store: store, Cache: newTestCache(t)})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.ListProducts(ctx, ListFilter{Page: 1, Limit: 24})
	require.NoError(t, err)
	require.Equal(t, int64(3), first.Total)
	require.Equal(t, 1, store.listCalls)

	second, err := svc.ListProducts(ctx, ListFilter{Page: 1, Limit: 24})
	require.NoError(t, err)
	require.Equal(t, first.Total, second.Total)
	require.Equal(t, 1, store.listCalls, "default page must come from cache")

	_, err = svc.ListProducts(ctx, ListFilter{Page: 2, Limit: 24})
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls, "non-default pages bypass the cache")
}

func TestGetProductDetailCarriesPriceMatrix(t *testing.T) {
	store := &fakeStore{products: testProducts()}
	svc, err := NewService(ServiceConfig{Store: store})
	require.NoError(t, err)

	detail, err := svc.GetProductDetail(context.Background(), "fern-study")
	require.NoError(t, err)
	require.Len(t, detail.Prices, 2)
	require.Equal(t, pricing.SizeA4, detail.Prices[0].Size)
	require.Equal(t, pricing.Money(9_900), detail.Prices[0].Price)
	require.Equal(t, pricing.Money(29_900), detail.Prices[0].Framed[pricing.FinishNatural])
	require.Equal(t, pricing.Money(14_900), detail.Prices[1].Price)
}

func TestGetProductDetailNotFound(t *testing.T) {
	svc, err := NewService(ServiceConfig{Store: &fakeStore{}})
	require.NoError(t, err)

	_, err = svc.GetProductDetail(context.Background(), "nope")
	require.Error(t, err)
}

func TestListRelatedExcludesSelf(t *testing.T) {
	store := &fakeStore{products: testProducts()}
	svc, err := NewService(ServiceConfig{Store: store})
	require.NoError(t, err)

	related, err := svc.ListRelatedProducts(context.Background(), "fern-study")
	require.NoError(t, err)
	require.Len(t, related, 2)
	for _, p := range related {
		require.NotEqual(t, "fern-study", p.Slug)
	}
}

func TestBundlesResolveMembersInOrder(t *testing.T) {
	products := testProducts()
	store := &fakeStore{
		products: products,
		bundles: []CuratedBundle{{
			ID:         uuid.New(),
			Title:      "Gallery Wall Starter",
			Slug:       "gallery-wall-starter",
			ProductIDs: []uuid.UUID{products[2].ID, products[0].ID},
			IsActive:   true,
		}},
	}
	svc, err := NewService(ServiceConfig{Store: store})
	require.NoError(t, err)

	views, err := svc.ListBundles(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Len(t, views[0].Products, 2)
	require.Equal(t, "alpine-morning", views[0].Products[0].Slug)
	require.Equal(t, "fern-study", views[0].Products[1].Slug)
}

func TestInvalidateCacheDropsHotKeys(t *testing.T) {
	store := &fakeStore{products: testProducts()}
	svc, err := NewService(ServiceConfig{Store: store, Cache: newTestCache(t)})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.ListProducts(ctx, ListFilter{Page: 1, Limit: 24})
	require.NoError(t, err)
	require.Equal(t, 1, store.listCalls)

	svc.InvalidateCache(ctx)

	_, err = svc.ListProducts(ctx, ListFilter{Page: 1, Limit: 24})
	require.NoError(t, err)
	require.Equal(t, 2, store.listCalls, "invalidation must force a fresh read")
}

func TestParseListParamsValidation(t *testing.T) {
	svc, err := NewService(ServiceConfig{Store: &fakeStore{}, MaxLimit: 50})
	require.NoError(t, err)

	f, err := svc.ParseListParams(map[string][]string{"q": {" fern "}, "limit": {"200"}})
	require.NoError(t, err)
	require.Equal(t, "fern", f.Query)
	require.Equal(t, 50, f.Limit, "limit is clamped to the maximum")

	_, err = svc.ParseListParams(map[string][]string{"page": {"zero"}})
	require.Error(t, err)
}
