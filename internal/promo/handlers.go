package promo

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/framecraft/backend-store/internal/common"
	"github.com/framecraft/backend-store/internal/pricing"
)

// AdminHandler exposes studio CRUD for pricing rules and coupons.
type AdminHandler struct {
	Repo     *Repo
	Validate *validator.Validate
}

type rulePayload struct {
	Name          string     `json:"name" validate:"required"`
	Kind          string     `json:"kind" validate:"required"`
	Value         int64      `json:"value"`
	TargetType    string     `json:"targetType"`
	MinOrderValue int64      `json:"minOrderValue"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
	IsActive      bool       `json:"isActive"`
	SortOrder     int        `json:"sortOrder"`
}

type couponPayload struct {
	Code          string     `json:"code" validate:"required"`
	Kind          string     `json:"kind" validate:"required,oneof=percentage fixed_amount"`
	Value         int64      `json:"value" validate:"gt=0"`
	MinOrderValue int64      `json:"minOrderValue"`
	UsageLimit    *int32     `json:"usageLimit"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
	IsActive      bool       `json:"isActive"`
}

// ListRules returns every configured rule.
func (h *AdminHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo repo not configured", nil)
		return
	}
	rules, err := h.Repo.ListRules(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list pricing rules", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rules})
}

// CreateRule adds a new pricing rule.
func (h *AdminHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var payload rulePayload
	if !h.decode(w, r, &payload) {
		return
	}
	kind := pricing.RuleKind(payload.Kind)
	if !kind.Valid() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown rule kind", nil)
		return
	}
	created, err := h.Repo.CreateRule(r.Context(), pricing.Rule{
		Name:          payload.Name,
		Kind:          kind,
		Value:         payload.Value,
		TargetType:    payload.TargetType,
		MinOrderValue: payload.MinOrderValue,
		StartDate:     payload.StartDate,
		EndDate:       payload.EndDate,
		IsActive:      payload.IsActive,
		SortOrder:     payload.SortOrder,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create pricing rule", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// UpdateRule replaces a rule's configuration.
func (h *AdminHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var payload rulePayload
	if !h.decode(w, r, &payload) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid rule id", nil)
		return
	}
	kind := pricing.RuleKind(payload.Kind)
	if !kind.Valid() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown rule kind", nil)
		return
	}
	updated, err := h.Repo.UpdateRule(r.Context(), pricing.Rule{
		ID:            id,
		Name:          payload.Name,
		Kind:          kind,
		Value:         payload.Value,
		TargetType:    payload.TargetType,
		MinOrderValue: payload.MinOrderValue,
		StartDate:     payload.StartDate,
		EndDate:       payload.EndDate,
		IsActive:      payload.IsActive,
		SortOrder:     payload.SortOrder,
	})
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "pricing rule not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update pricing rule", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// DeleteRule removes a rule.
func (h *AdminHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo repo not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid rule id", nil)
		return
	}
	if err := h.Repo.DeleteRule(r.Context(), id); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "pricing rule not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete pricing rule", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// ListCoupons returns every coupon with its usage counters.
func (h *AdminHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo repo not configured", nil)
		return
	}
	coupons, err := h.Repo.ListCoupons(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": coupons})
}

// CreateCoupon adds a coupon with a fresh usage counter.
func (h *AdminHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if !h.decode(w, r, &payload) {
		return
	}
	created, err := h.Repo.CreateCoupon(r.Context(), pricing.Coupon{
		Code:          strings.ToUpper(strings.TrimSpace(payload.Code)),
		Kind:          pricing.CouponKind(payload.Kind),
		Value:         payload.Value,
		MinOrderValue: payload.MinOrderValue,
		UsageLimit:    payload.UsageLimit,
		StartDate:     payload.StartDate,
		EndDate:       payload.EndDate,
		IsActive:      payload.IsActive,
	})
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// UpdateCoupon replaces a coupon's configuration by code.
func (h *AdminHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if !h.decode(w, r, &payload) {
		return
	}
	code := chi.URLParam(r, "code")
	updated, err := h.Repo.UpdateCoupon(r.Context(), pricing.Coupon{
		Code:          code,
		Kind:          pricing.CouponKind(payload.Kind),
		Value:         payload.Value,
		MinOrderValue: payload.MinOrderValue,
		UsageLimit:    payload.UsageLimit,
		StartDate:     payload.StartDate,
		EndDate:       payload.EndDate,
		IsActive:      payload.IsActive,
	})
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// DeleteCoupon removes a coupon by code.
func (h *AdminHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo repo not configured", nil)
		return
	}
	if err := h.Repo.DeleteCoupon(r.Context(), chi.URLParam(r, "code")); err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete coupon", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

func (h *AdminHandler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo repo not configured", nil)
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
