package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"medeasy/pos/domain"
	"medeasy/pos/internal/checkout"
)

func (h *Handler) posCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.checkout.Open(r.Context(), h.currentUser(r))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.checkout.Get(r.Context(), chi.URLParam(r, "id"), h.currentUser(r))
	h.respondView(w, r, v, err)
}

func (h *Handler) discardSession(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.Discard(r.Context(), chi.URLParam(r, "id"), h.currentUser(r)); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string `json:"product_id"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.ProductID == "" {
		respondError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	v, err := h.checkout.AddItem(r.Context(), chi.URLParam(r, "id"), h.currentUser(r), payload.ProductID)
	h.respondView(w, r, v, err)
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Quantity *int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Quantity == nil {
		respondError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	v, err := h.checkout.SetQuantity(r.Context(), chi.URLParam(r, "id"), h.currentUser(r),
		chi.URLParam(r, "productID"), *payload.Quantity)
	h.respondView(w, r, v, err)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	v, err := h.checkout.RemoveItem(r.Context(), chi.URLParam(r, "id"), h.currentUser(r), chi.URLParam(r, "productID"))
	h.respondView(w, r, v, err)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	v, err := h.checkout.Clear(r.Context(), chi.URLParam(r, "id"), h.currentUser(r))
	h.respondView(w, r, v, err)
}

func (h *Handler) violations(w http.ResponseWriter, r *http.Request) {
	violations, err := h.checkout.Violations(r.Context(), chi.URLParam(r, "id"), h.currentUser(r))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, violations)
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PaymentMethod domain.PaymentMethod `json:"payment_method"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sale, err := h.checkout.Commit(r.Context(), chi.URLParam(r, "id"), h.currentUser(r), payload.PaymentMethod)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sale)
}

func (h *Handler) respondView(w http.ResponseWriter, r *http.Request, v checkout.View, err error) {
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}
