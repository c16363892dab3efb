package order

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/framecraft/backend-store/internal/common"
)

// Handler exposes the guest order lookup.
type Handler struct {
	Repo *Repo
}

// Get handles GET /api/v1/orders/{number}?email=. There are no accounts;
// possession of the order number plus the matching email is the proof of
// ownership, so a mismatch reads the same as a missing order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order repo not configured", nil)
		return
	}
	number := chi.URLParam(r, "number")
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "email query parameter is required", nil)
		return
	}
	o, err := h.Repo.GetByNumberAndEmail(r.Context(), number, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}
