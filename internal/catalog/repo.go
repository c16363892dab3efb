package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested catalog record does not exist.
var ErrNotFound = errors.New("catalog record not found")

// Product is a poster design in the catalog. Unit prices are not stored
// here; they come from the size/frame price tables.
type Product struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"imageUrl"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
	Tags        []string   `json:"tags"`
	IsActive    bool       `json:"isActive"`
	SortOrder   int        `json:"sortOrder"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Category groups posters for browsing.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	SortOrder int       `json:"sortOrder"`
}

// CuratedBundle is a staff-assembled poster set promoted on the storefront.
// The shopper still builds their own cart bundle from it; this is marketing
// content, not pricing input.
type CuratedBundle struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description,omitempty"`
	ProductIDs  []uuid.UUID `json:"productIds"`
	IsActive    bool        `json:"isActive"`
	SortOrder   int         `json:"sortOrder"`
}

// HomeSection is one row of the homepage layout.
type HomeSection struct {
	ID         uuid.UUID   `json:"id"`
	Title      string      `json:"title"`
	Layout     string      `json:"layout"`
	ProductIDs []uuid.UUID `json:"productIds"`
	IsActive   bool        `json:"isActive"`
	SortOrder  int         `json:"sortOrder"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Query    string
	Category string
	Tag      string
	Page     int
	Limit    int
}

// Repo provides SQL access to catalog tables.
type Repo struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, title, slug, description, image_url, category_id, tags, is_active, sort_order, created_at`

// CountProducts returns the number of active products matching the filter.
func (r *Repo) CountProducts(ctx context.Context, f ListFilter) (int64, error) {
	if r == nil || r.Pool == nil {
		return 0, errors.New("catalog repo not configured")
	}
	where, args := productFilter(f)
	var total int64
	err := r.Pool.QueryRow(ctx, `SELECT count(*) FROM products p `+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// ListProducts returns a page of active products matching the filter.
func (r *Repo) ListProducts(ctx context.Context, f ListFilter) ([]Product, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("catalog repo not configured")
	}
	where, args := productFilter(f)
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		offset = 0
	}
	args = append(args, f.Limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM products p %s ORDER BY sort_order, title LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))
	rows, err := r.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func productFilter(f ListFilter) (string, []any) {
	conds := []string{"p.is_active"}
	var args []any
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("p.title ILIKE $%d", len(args)))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		args = append(args, c)
		conds = append(conds, fmt.Sprintf("p.category_id = (SELECT id FROM categories WHERE slug = $%d)", len(args)))
	}
	if t := strings.TrimSpace(f.Tag); t != "" {
		args = append(args, t)
		conds = append(conds, fmt.Sprintf("$%d = ANY(p.tags)", len(args)))
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// GetProductBySlug fetches one product regardless of paging.
func (r *Repo) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	if r == nil || r.Pool == nil {
		return Product{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, strings.TrimSpace(slug))
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// ListProductsByIDs resolves curated bundle and home section members,
// preserving input order.
func (r *Repo) ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("catalog repo not configured")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) AND is_active`, ids)
	if err != nil {
		return nil, fmt.Errorf("list products by ids: %w", err)
	}
	defer rows.Close()
	fetched, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	ordered := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// ListRelated returns up to limit active products sharing the category,
// excluding the product itself.
func (r *Repo) ListRelated(ctx context.Context, categoryID uuid.UUID, excludeSlug string, limit int) ([]Product, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("catalog repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE category_id = $1 AND slug <> $2 AND is_active
		ORDER BY sort_order, title LIMIT $3`,
		categoryID, excludeSlug, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list related: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// CreateProduct inserts a product and returns it with its generated id.
func (r *Repo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if r == nil || r.Pool == nil {
		return Product{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO products (title, slug, description, image_url, category_id, tags, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productColumns,
		p.Title, p.Slug, p.Description, p.ImageURL, toUUID(p.CategoryID), tagsOrEmpty(p.Tags), p.IsActive, p.SortOrder,
	)
	return scanProduct(row)
}

// UpdateProduct replaces a product's fields by id.
func (r *Repo) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	if r == nil || r.Pool == nil {
		return Product{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		UPDATE products
		SET title = $2, slug = $3, description = $4, image_url = $5, category_id = $6,
		    tags = $7, is_active = $8, sort_order = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Title, p.Slug, p.Description, p.ImageURL, toUUID(p.CategoryID), tagsOrEmpty(p.Tags), p.IsActive, p.SortOrder,
	)
	updated, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return updated, err
}

// DeleteProduct removes a product by id.
func (r *Repo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "products", id)
}

// ListCategories returns all categories in display order.
func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("catalog repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `SELECT id, name, slug, sort_order FROM categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// CreateCategory inserts a category.
func (r *Repo) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if r == nil || r.Pool == nil {
		return Category{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO categories (name, slug, sort_order) VALUES ($1, $2, $3)
		RETURNING id, name, slug, sort_order`,
		c.Name, c.Slug, c.SortOrder,
	)
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder)
	return c, err
}

// UpdateCategory replaces a category's fields by id.
func (r *Repo) UpdateCategory(ctx context.Context, c Category) (Category, error) {
	if r == nil || r.Pool == nil {
		return Category{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		UPDATE categories SET name = $2, slug = $3, sort_order = $4 WHERE id = $1
		RETURNING id, name, slug, sort_order`,
		c.ID, c.Name, c.Slug, c.SortOrder,
	)
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

// DeleteCategory removes a category by id.
func (r *Repo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "categories", id)
}

const bundleColumns = `id, title, slug, description, product_ids, is_active, sort_order`

// ListCuratedBundles returns active curated bundles in display order.
func (r *Repo) ListCuratedBundles(ctx context.Context) ([]CuratedBundle, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("catalog repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+bundleColumns+` FROM curated_bundles WHERE is_active ORDER BY sort_order, title`)
	if err != nil {
		return nil, fmt.Errorf("list curated bundles: %w", err)
	}
	defer rows.Close()
	return scanBundles(rows)
}

// ListAllCuratedBundles returns every curated bundle for the studio table.
func (r *Repo) ListAllCuratedBundles(ctx context.Context) ([]CuratedBundle, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("catalog repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+bundleColumns+` FROM curated_bundles ORDER BY sort_order, title`)
	if err != nil {
		return nil, fmt.Errorf("list curated bundles: %w", err)
	}
	defer rows.Close()
	return scanBundles(rows)
}

// CreateCuratedBundle inserts a curated bundle.
func (r *Repo) CreateCuratedBundle(ctx context.Context, b CuratedBundle) (CuratedBundle, error) {
	if r == nil || r.Pool == nil {
		return CuratedBundle{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO curated_bundles (title, slug, description, product_ids, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+bundleColumns,
		b.Title, b.Slug, b.Description, idsOrEmpty(b.ProductIDs), b.IsActive, b.SortOrder,
	)
	return scanBundle(row)
}

// UpdateCuratedBundle replaces a curated bundle's fields by id.
func (r *Repo) UpdateCuratedBundle(ctx context.Context, b CuratedBundle) (CuratedBundle, error) {
	if r == nil || r.Pool == nil {
		return CuratedBundle{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		UPDATE curated_bundles
		SET title = $2, slug = $3, description = $4, product_ids = $5, is_active = $6, sort_order = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+bundleColumns,
		b.ID, b.Title, b.Slug, b.Description, idsOrEmpty(b.ProductIDs), b.IsActive, b.SortOrder,
	)
	updated, err := scanBundle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return CuratedBundle{}, ErrNotFound
	}
	return updated, err
}

// DeleteCuratedBundle removes a curated bundle by id.
func (r *Repo) DeleteCuratedBundle(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "curated_bundles", id)
}

const sectionColumns = `id, title, layout, product_ids, is_active, sort_order`

// ListHomeSections returns active homepage sections in display order.
func (r *Repo) ListHomeSections(ctx context.Context) ([]HomeSection, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("catalog repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+sectionColumns+` FROM home_sections WHERE is_active ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("list home sections: %w", err)
	}
	defer rows.Close()
	return scanSections(rows)
}

// ListAllHomeSections returns every section for the studio table.
func (r *Repo) ListAllHomeSections(ctx context.Context) ([]HomeSection, error) {
	if r == nil || r.Pool == nil {
		return nil, errors.New("catalog repo not configured")
	}
	rows, err := r.Pool.Query(ctx, `SELECT `+sectionColumns+` FROM home_sections ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("list home sections: %w", err)
	}
	defer rows.Close()
	return scanSections(rows)
}

// CreateHomeSection inserts a section.
func (r *Repo) CreateHomeSection(ctx context.Context, s HomeSection) (HomeSection, error) {
	if r == nil || r.Pool == nil {
		return HomeSection{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO home_sections (title, layout, product_ids, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+sectionColumns,
		s.Title, s.Layout, idsOrEmpty(s.ProductIDs), s.IsActive, s.SortOrder,
	)
	return scanSection(row)
}

// UpdateHomeSection replaces a section's fields by id.
func (r *Repo) UpdateHomeSection(ctx context.Context, s HomeSection) (HomeSection, error) {
	if r == nil || r.Pool == nil {
		return HomeSection{}, errors.New("catalog repo not configured")
	}
	row := r.Pool.QueryRow(ctx, `
		UPDATE home_sections
		SET title = $2, layout = $3, product_ids = $4, is_active = $5, sort_order = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+sectionColumns,
		s.ID, s.Title, s.Layout, idsOrEmpty(s.ProductIDs), s.IsActive, s.SortOrder,
	)
	updated, err := scanSection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return HomeSection{}, ErrNotFound
	}
	return updated, err
}

// DeleteHomeSection removes a section by id.
func (r *Repo) DeleteHomeSection(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "home_sections", id)
}

func (r *Repo) deleteByID(ctx context.Context, table string, id uuid.UUID) error {
	if r == nil || r.Pool == nil {
		return errors.New("catalog repo not configured")
	}
	tag, err := r.Pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		category pgtype.UUID
	)
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.ImageURL,
		&category, &p.Tags, &p.IsActive, &p.SortOrder, &p.CreatedAt)
	if err != nil {
		return Product{}, err
	}
	if category.Valid {
		id := uuid.UUID(category.Bytes)
		p.CategoryID = &id
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, nil
}

func scanBundles(rows pgx.Rows) ([]CuratedBundle, error) {
	var bundles []CuratedBundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, rows.Err()
}

func scanBundle(row pgx.Row) (CuratedBundle, error) {
	var b CuratedBundle
	err := row.Scan(&b.ID, &b.Title, &b.Slug, &b.Description, &b.ProductIDs, &b.IsActive, &b.SortOrder)
	if err != nil {
		return CuratedBundle{}, err
	}
	if b.ProductIDs == nil {
		b.ProductIDs = []uuid.UUID{}
	}
	return b, nil
}

func scanSections(rows pgx.Rows) ([]HomeSection, error) {
	var sections []HomeSection
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func scanSection(row pgx.Row) (HomeSection, error) {
	var s HomeSection
	err := row.Scan(&s.ID, &s.Title, &s.Layout, &s.ProductIDs, &s.IsActive, &s.SortOrder)
	if err != nil {
		return HomeSection{}, err
	}
	if s.ProductIDs == nil {
		s.ProductIDs = []uuid.UUID{}
	}
	return s, nil
}

func toUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func idsOrEmpty(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
