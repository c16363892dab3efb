package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/framecraft/backend-store/internal/common"
	"github.com/framecraft/backend-store/internal/pricing"
)

// Handler exposes cart HTTP endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type bundleRequest struct {
	Products []Selection          `json:"products" validate:"required,min=1,dive"`
	Size     pricing.PosterSize   `json:"size" validate:"required"`
	Frame    *pricing.FrameOption `json:"frame,omitempty"`
}

type customBundleRequest struct {
	Uploads []CustomSelection    `json:"uploads" validate:"required,min=1,dive"`
	Size    pricing.PosterSize   `json:"size" validate:"required"`
	Frame   *pricing.FrameOption `json:"frame,omitempty"`
}

// Create provisions an empty cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	state, err := h.Svc.Create(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create cart", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": stateResponse(state)})
}

// Get returns the cart with derived totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	state, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stateResponse(state)})
}

// AddBundle commits a product selection to the cart as a new bundle.
func (h *Handler) AddBundle(w http.ResponseWriter, r *http.Request) {
	var req bundleRequest
	if !h.decode(w, r, &req) {
		return
	}
	state, err := h.Svc.AddBundle(r.Context(), chi.URLParam(r, "id"), req.Products, req.Size, req.Frame)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stateResponse(state)})
}

// AddCustomBundle commits a set of uploaded designs as a new bundle.
func (h *Handler) AddCustomBundle(w http.ResponseWriter, r *http.Request) {
	var req customBundleRequest
	if !h.decode(w, r, &req) {
		return
	}
	state, err := h.Svc.AddCustomBundle(r.Context(), chi.URLParam(r, "id"), req.Uploads, req.Size, req.Frame)
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stateResponse(state)})
}

// UpdateBundle replaces a bundle's items wholesale.
func (h *Handler) UpdateBundle(w http.ResponseWriter, r *http.Request) {
	var req bundleRequest
	if !h.decode(w, r, &req) {
		return
	}
	state, found, err := h.Svc.UpdateBundle(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bundleId"), req.Products, req.Size, req.Frame)
	if err != nil {
		writeCartError(w, err)
		return
	}
	if !found {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "bundle not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stateResponse(state)})
}

// RemoveBundle deletes a bundle from the cart.
func (h *Handler) RemoveBundle(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	state, err := h.Svc.RemoveBundle(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bundleId"))
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stateResponse(state)})
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	state, err := h.Svc.Clear(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCartError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": stateResponse(state)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
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

func writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}

func stateResponse(state State) map[string]any {
	return map[string]any{
		"id":            state.ID,
		"bundles":       state.Bundles,
		"subtotal":      state.Subtotal(),
		"total":         state.Total(),
		"totalDiscount": state.TotalDiscount(),
		"itemsCount":    state.ItemsCount(),
		"appliedDeals":  state.AppliedDeals(),
		"updatedAt":     state.UpdatedAt,
	}
}
