package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/framecraft/backend-store/internal/common"
	"github.com/framecraft/backend-store/internal/pricing"
)

type store interface {
	CountProducts(ctx context.Context, f ListFilter) (int64, error)
	ListProducts(ctx context.Context, f ListFilter) ([]Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	ListRelated(ctx context.Context, categoryID uuid.UUID, excludeSlug string, limit int) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListCuratedBundles(ctx context.Context) ([]CuratedBundle, error)
	ListHomeSections(ctx context.Context) ([]HomeSection, error)
}

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	store        store
	cache        *Cache
	defaultPage  int
	defaultLimit int
	maxLimit     int
	relatedLimit int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        store
	Cache        *Cache
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
	RelatedLimit int
}

// SizePrices lists the per-size unframed and framed price points shown on
// a product page.
type SizePrices struct {
	Size   pricing.PosterSize                    `json:"size"`
	Price  pricing.Money                         `json:"price"`
	Framed map[pricing.FrameFinish]pricing.Money `json:"framed"`
}

// ProductDetail is a product plus its price matrix.
type ProductDetail struct {
	Product
	Prices []SizePrices `json:"prices"`
}

// BundleView is a curated bundle with its member products resolved.
type BundleView struct {
	CuratedBundle
	Products []Product `json:"products"`
}

// SectionView is a homepage section with its products resolved.
type SectionView struct {
	HomeSection
	Products []Product `json:"products"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 24
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	relatedLimit := cfg.RelatedLimit
	if relatedLimit < 1 {
		relatedLimit = 8
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		relatedLimit: relatedLimit,
	}, nil
}

// ParseListParams normalises raw query values into a typed filter.
func (s *Service) ParseListParams(values url.Values) (ListFilter, error) {
	f := ListFilter{
		Page:     s.defaultPage,
		Limit:    s.defaultLimit,
		Query:    strings.TrimSpace(values.Get("q")),
		Category: strings.TrimSpace(values.Get("category")),
		Tag:      strings.TrimSpace(values.Get("tag")),
	}
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return f, badRequest("page", "page must be a positive integer", err)
		}
		f.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return f, badRequest("limit", "limit must be a positive integer", err)
		}
		f.Limit = l
	}
	if f.Limit > s.maxLimit {
		f.Limit = s.maxLimit
	}
	return f, nil
}

// ListProducts returns a filtered product page. The unfiltered first page
// is the storefront's hottest read and is served from cache.
func (s *Service) ListProducts(ctx context.Context, f ListFilter) (ProductListResult, error) {
	key, cacheable := s.listCacheKey(f)
	if cacheable {
		var cached cachedList
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: f.Page, Limit: f.Limit}, nil
		}
	}
	total, err := s.store.CountProducts(ctx, f)
	if err != nil {
		return ProductListResult{}, err
	}
	items, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return ProductListResult{}, err
	}
	if items == nil {
		items = []Product{}
	}
	if cacheable {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return ProductListResult{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// GetProductDetail returns the product with its full price matrix.
func (s *Service) GetProductDetail(ctx context.Context, slug string) (ProductDetail, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetail{}, badRequest("slug", "slug is required", nil)
	}
	key := "catalog:products:detail:" + slug
	if s.cache != nil {
		var cached ProductDetail
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	product, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProductDetail{}, notFound("product not found", err)
		}
		return ProductDetail{}, fmt.Errorf("get product by slug: %w", err)
	}
	detail := ProductDetail{Product: product, Prices: priceMatrix()}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, detail)
	}
	return detail, nil
}

// ListRelatedProducts fetches other posters in the same category.
func (s *Service) ListRelatedProducts(ctx context.Context, slug string) ([]Product, error) {
	product, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFound("product not found", err)
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	if product.CategoryID == nil {
		return []Product{}, nil
	}
	items, err := s.store.ListRelated(ctx, *product.CategoryID, product.Slug, s.relatedLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Product{}
	}
	return items, nil
}

// ListCategories returns categories in display order.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []Category{}
	}
	return cats, nil
}

// ListBundles returns active curated bundles with their products resolved.
func (s *Service) ListBundles(ctx context.Context) ([]BundleView, error) {
	const key = "catalog:bundles"
	if s.cache != nil {
		var cached []BundleView
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	bundles, err := s.store.ListCuratedBundles(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]BundleView, 0, len(bundles))
	for _, b := range bundles {
		products, err := s.store.ListProductsByIDs(ctx, b.ProductIDs)
		if err != nil {
			return nil, err
		}
		if products == nil {
			products = []Product{}
		}
		views = append(views, BundleView{CuratedBundle: b, Products: products})
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, views)
	}
	return views, nil
}

// Home returns the homepage sections with their products resolved.
func (s *Service) Home(ctx context.Context) ([]SectionView, error) {
	const key = "catalog:home"
	if s.cache != nil {
		var cached []SectionView
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	sections, err := s.store.ListHomeSections(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]SectionView, 0, len(sections))
	for _, sec := range sections {
		products, err := s.store.ListProductsByIDs(ctx, sec.ProductIDs)
		if err != nil {
			return nil, err
		}
		if products == nil {
			products = []Product{}
		}
		views = append(views, SectionView{HomeSection: sec, Products: products})
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, views)
	}
	return views, nil
}

// InvalidateCache drops the hot-read keys after a studio write. Detail
// keys expire on their TTL; only the cheap enumerable keys are dropped
// eagerly.
func (s *Service) InvalidateCache(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.Delete(ctx, "catalog:products:list:default", "catalog:bundles", "catalog:home")
}

type cachedList struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}

func (s *Service) listCacheKey(f ListFilter) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	if f.Page != s.defaultPage || f.Limit != s.defaultLimit {
		return "", false
	}
	if f.Query != "" || f.Category != "" || f.Tag != "" {
		return "", false
	}
	return "catalog:products:list:default", true
}

func priceMatrix() []SizePrices {
	sizes := []pricing.PosterSize{pricing.SizeA4, pricing.SizeA3}
	matrix := make([]SizePrices, 0, len(sizes))
	for _, size := range sizes {
		framed := make(map[pricing.FrameFinish]pricing.Money)
		for _, finish := range []pricing.FrameFinish{pricing.FinishBlack, pricing.FinishWhite, pricing.FinishNatural} {
			framed[finish] = pricing.FramePrice(pricing.FrameOption{Size: size, Finish: finish})
		}
		matrix = append(matrix, SizePrices{Size: size, Price: pricing.SizePrice(size), Framed: framed})
	}
	return matrix
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]any{"field": field},
	}
}

func notFound(message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "NOT_FOUND",
		Message:    message,
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}
