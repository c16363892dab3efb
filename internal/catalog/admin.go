package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/framecraft/backend-store/internal/common"
)

// AdminHandler exposes studio CRUD for products, categories, curated
// bundles, and homepage sections. Writes invalidate the hot-read caches.
type AdminHandler struct {
	Repo     *Repo
	Service  *Service
	Validate *validator.Validate
}

type productPayload struct {
	Title       string      `json:"title" validate:"required"`
	Slug        string      `json:"slug" validate:"required"`
	Description string      `json:"description"`
	ImageURL    string      `json:"imageUrl" validate:"required,url"`
	CategoryID  *uuid.UUID  `json:"categoryId"`
	Tags        []string    `json:"tags"`
	IsActive    bool        `json:"isActive"`
	SortOrder   int         `json:"sortOrder"`
}

type categoryPayload struct {
	Name      string `json:"name" validate:"required"`
	Slug      string `json:"slug" validate:"required"`
	SortOrder int    `json:"sortOrder"`
}

type bundlePayload struct {
	Title       string      `json:"title" validate:"required"`
	Slug        string      `json:"slug" validate:"required"`
	Description string      `json:"description"`
	ProductIDs  []uuid.UUID `json:"productIds" validate:"required,min=1"`
	IsActive    bool        `json:"isActive"`
	SortOrder   int         `json:"sortOrder"`
}

type sectionPayload struct {
	Title      string      `json:"title" validate:"required"`
	Layout     string      `json:"layout" validate:"required,oneof=hero grid carousel strip"`
	ProductIDs []uuid.UUID `json:"productIds"`
	IsActive   bool        `json:"isActive"`
	SortOrder  int         `json:"sortOrder"`
}

// ListProducts handles GET /studio/products (active and inactive).
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	// Studio sees everything; reuse the public filter with the active
	// restriction handled SQL-side only for the storefront path.
	rows, err := h.Repo.Pool.Query(r.Context(), `SELECT `+productColumns+` FROM products ORDER BY sort_order, title`)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	defer rows.Close()
	products, err := scanProducts(rows)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

// CreateProduct handles POST /studio/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if !h.decode(w, r, &payload) {
		return
	}
	created, err := h.Repo.CreateProduct(r.Context(), Product{
		Title:       payload.Title,
		Slug:        payload.Slug,
		Description: payload.Description,
		ImageURL:    payload.ImageURL,
		CategoryID:  payload.CategoryID,
		Tags:        payload.Tags,
		IsActive:    payload.IsActive,
		SortOrder:   payload.SortOrder,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create product", nil)
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// UpdateProduct handles PUT /studio/products/{id}.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if !h.decode(w, r, &payload) {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	updated, err := h.Repo.UpdateProduct(r.Context(), Product{
		ID:          id,
		Title:       payload.Title,
		Slug:        payload.Slug,
		Description: payload.Description,
		ImageURL:    payload.ImageURL,
		CategoryID:  payload.CategoryID,
		Tags:        payload.Tags,
		IsActive:    payload.IsActive,
		SortOrder:   payload.SortOrder,
	})
	if err != nil {
		h.writeError(w, err, "product")
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// DeleteProduct handles DELETE /studio/products/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.Repo.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, err, "product")
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// ListCategories handles GET /studio/categories.
func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cats, err := h.Repo.ListCategories(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list categories", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cats})
}

// CreateCategory handles POST /studio/categories.
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if !h.decode(w, r, &payload) {
		return
	}
	created, err := h.Repo.CreateCategory(r.Context(), Category{Name: payload.Name, Slug: payload.Slug, SortOrder: payload.SortOrder})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create category", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// UpdateCategory handles PUT /studio/categories/{id}.
func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if !h.decode(w, r, &payload) {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	updated, err := h.Repo.UpdateCategory(r.Context(), Category{ID: id, Name: payload.Name, Slug: payload.Slug, SortOrder: payload.SortOrder})
	if err != nil {
		h.writeError(w, err, "category")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// DeleteCategory handles DELETE /studio/categories/{id}.
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.Repo.DeleteCategory(r.Context(), id); err != nil {
		h.writeError(w, err, "category")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// ListBundles handles GET /studio/bundles.
func (h *AdminHandler) ListBundles(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	bundles, err := h.Repo.ListAllCuratedBundles(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list bundles", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": bundles})
}

// CreateBundle handles POST /studio/bundles.
func (h *AdminHandler) CreateBundle(w http.ResponseWriter, r *http.Request) {
	var payload bundlePayload
	if !h.decode(w, r, &payload) {
		return
	}
	created, err := h.Repo.CreateCuratedBundle(r.Context(), CuratedBundle{
		Title:       payload.Title,
		Slug:        payload.Slug,
		Description: payload.Description,
		ProductIDs:  payload.ProductIDs,
		IsActive:    payload.IsActive,
		SortOrder:   payload.SortOrder,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create bundle", nil)
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// UpdateBundle handles PUT /studio/bundles/{id}.
func (h *AdminHandler) UpdateBundle(w http.ResponseWriter, r *http.Request) {
	var payload bundlePayload
	if !h.decode(w, r, &payload) {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	updated, err := h.Repo.UpdateCuratedBundle(r.Context(), CuratedBundle{
		ID:          id,
		Title:       payload.Title,
		Slug:        payload.Slug,
		Description: payload.Description,
		ProductIDs:  payload.ProductIDs,
		IsActive:    payload.IsActive,
		SortOrder:   payload.SortOrder,
	})
	if err != nil {
		h.writeError(w, err, "bundle")
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// DeleteBundle handles DELETE /studio/bundles/{id}.
func (h *AdminHandler) DeleteBundle(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.Repo.DeleteCuratedBundle(r.Context(), id); err != nil {
		h.writeError(w, err, "bundle")
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// ListHomeSections handles GET /studio/home-sections.
func (h *AdminHandler) ListHomeSections(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	sections, err := h.Repo.ListAllHomeSections(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list home sections", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sections})
}

// CreateHomeSection handles POST /studio/home-sections.
func (h *AdminHandler) CreateHomeSection(w http.ResponseWriter, r *http.Request) {
	var payload sectionPayload
	if !h.decode(w, r, &payload) {
		return
	}
	created, err := h.Repo.CreateHomeSection(r.Context(), HomeSection{
		Title:      payload.Title,
		Layout:     payload.Layout,
		ProductIDs: payload.ProductIDs,
		IsActive:   payload.IsActive,
		SortOrder:  payload.SortOrder,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create home section", nil)
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// UpdateHomeSection handles PUT /studio/home-sections/{id}.
func (h *AdminHandler) UpdateHomeSection(w http.ResponseWriter, r *http.Request) {
	var payload sectionPayload
	if !h.decode(w, r, &payload) {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	updated, err := h.Repo.UpdateHomeSection(r.Context(), HomeSection{
		ID:         id,
		Title:      payload.Title,
		Layout:     payload.Layout,
		ProductIDs: payload.ProductIDs,
		IsActive:   payload.IsActive,
		SortOrder:  payload.SortOrder,
	})
	if err != nil {
		h.writeError(w, err, "home section")
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// DeleteHomeSection handles DELETE /studio/home-sections/{id}.
func (h *AdminHandler) DeleteHomeSection(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.Repo.DeleteHomeSection(r.Context(), id); err != nil {
		h.writeError(w, err, "home section")
		return
	}
	h.invalidate(r)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

func (h *AdminHandler) ready(w http.ResponseWriter) bool {
	if h.Repo == nil || h.Repo.Pool == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog repo not configured", nil)
		return false
	}
	return true
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if !h.ready(w) {
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(into); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "validation failed", err.Error())
			return false
		}
	}
	return true
}

func (h *AdminHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update "+what, nil)
}

func (h *AdminHandler) invalidate(r *http.Request) {
	if h.Service != nil {
		h.Service.InvalidateCache(r.Context())
	}
}
