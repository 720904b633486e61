package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborline/shopfront/model"
)

func (h *handlers) handleCartSummary(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	orderID := chi.URLParam(r, "orderID")

	summary, err := h.cart.Summary(r.Context(), rctx, orderID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// handleApplyPromotion applies a promotion code. A blank code is accepted and
// does nothing, mirroring the cart's no-op contract.
func (h *handlers) handleApplyPromotion(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	orderID := chi.URLParam(r, "orderID")
	code := chi.URLParam(r, "code")

	if err := h.cart.ApplyPromotion(r.Context(), rctx, orderID, code); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (h *handlers) handleRemovePromotion(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	orderID := chi.URLParam(r, "orderID")
	code := chi.URLParam(r, "code")

	if err := h.cart.RemovePromotion(r.Context(), rctx, orderID, code); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusNoContent, nil)
}
