package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) handleNotifications(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.notifier.Active())
}

func (h *handlers) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	h.notifier.Dismiss(chi.URLParam(r, "id"))
	WriteJSON(w, http.StatusNoContent, nil)
}
