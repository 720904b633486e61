package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborline/shopfront/model"
)

// handleResourceDescriptor serves the projected columns, table state, and
// action flags for one resource list.
func (h *handlers) handleResourceDescriptor(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	resource := chi.URLParam(r, "resource")

	desc, err := h.listView.Descriptor(r.Context(), rctx, resource, r.URL.Query())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, desc)
}

// handleResourceData serves one page of items for the resource, driven
// entirely by the request's query string.
func (h *handlers) handleResourceData(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	resource := chi.URLParam(r, "resource")

	page, err := h.listView.Page(r.Context(), rctx, resource, r.URL.Query(), scopeParams(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

func (h *handlers) handleResourceDelete(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	resource := chi.URLParam(r, "resource")
	itemID := chi.URLParam(r, "itemID")

	if err := h.listView.Delete(r.Context(), rctx, resource, itemID, scopeParams(r)); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusNoContent, nil)
}

func (h *handlers) handleResourceCreate(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	resource := chi.URLParam(r, "resource")

	body, err := decodeBody(r)
	if err != nil {
		WriteError(w, model.NewBadRequestError("Request body must be a JSON object"))
		return
	}

	created, err := h.listView.Create(r.Context(), rctx, resource, body, scopeParams(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

// scopeParams extracts parent-scope path parameters (such as buyerID) from
// the query string; the commerce client substitutes them into the operation's
// path template.
func scopeParams(r *http.Request) map[string]string {
	params := map[string]string{}
	for _, key := range []string{"buyerID", "supplierID", "catalogID"} {
		if v := r.URL.Query().Get(key); v != "" {
			params[key] = v
		}
	}
	return params
}

func decodeBody(r *http.Request) (map[string]any, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	return body, nil
}
