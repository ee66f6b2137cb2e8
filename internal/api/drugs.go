package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"medeasy/pos/domain"
	"medeasy/pos/internal/inventory"
)

type drugRequest struct {
	Name              string          `json:"name"`
	Manufacturer      string          `json:"manufacturer"`
	Quantity          int64           `json:"quantity"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	ExpiryDate        string          `json:"expiry_date"`
	LowStockThreshold *int64          `json:"low_stock_threshold"`
	SupplierID        *string         `json:"supplier_id"`
}

func (req drugRequest) apply(d *domain.Drug) error {
	d.Name = strings.TrimSpace(req.Name)
	d.Manufacturer = strings.TrimSpace(req.Manufacturer)
	d.Quantity = req.Quantity
	d.PurchasePrice = req.PurchasePrice
	d.SellingPrice = req.SellingPrice
	d.SupplierID = nullIfEmpty(req.SupplierID)
	if req.LowStockThreshold != nil {
		d.LowStockThreshold = *req.LowStockThreshold
	}
	d.ExpiryDate = nil
	if v := strings.TrimSpace(req.ExpiryDate); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return err
		}
		d.ExpiryDate = &t
	}
	return nil
}

func (h *Handler) listDrugs(w http.ResponseWriter, r *http.Request) {
	drugs, err := h.store.ListDrugs(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, drugs)
}

func (h *Handler) getDrug(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.GetDrug(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handler) createDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	var req drugRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	d := domain.Drug{LowStockThreshold: domain.DefaultLowStockThreshold}
	if err := req.apply(&d); err != nil {
		respondError(w, http.StatusBadRequest, "expiry_date must be in YYYY-MM-DD format")
		return
	}
	if err := h.store.CreateDrug(r.Context(), &d); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *Handler) updateDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	d, err := h.store.GetDrug(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	var req drugRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.apply(d); err != nil {
		respondError(w, http.StatusBadRequest, "expiry_date must be in YYYY-MM-DD format")
		return
	}
	if err := h.store.UpdateDrug(r.Context(), d); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handler) deleteDrug(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	if err := h.store.DeleteDrug(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) drugAlerts(w http.ResponseWriter, r *http.Request) {
	drugs, err := h.store.ListDrugs(r.Context(), "")
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inventory.Compute(drugs, h.now(), h.alerts))
}

func nullIfEmpty(val *string) *string {
	if val == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
