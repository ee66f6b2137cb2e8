package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"medeasy/pos/domain"
	"medeasy/pos/internal/auth"
	"medeasy/pos/internal/report"
	"medeasy/pos/internal/store"
)

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RolePharmacist) {
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sales, err := h.store.ListSales(r.Context(), store.SaleFilter{From: from, To: to})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.store.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	principal, _ := auth.FromContext(r.Context())
	if sale.UserID != principal.UserID && !principal.HasRole(domain.RoleAdmin, domain.RolePharmacist) {
		respondError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

type mySalesResponse struct {
	Stats report.MyStats `json:"stats"`
	Sales []domain.Sale  `json:"sales"`
}

func (h *Handler) mySales(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sales, err := h.salesWithLines(r, store.SaleFilter{From: from, To: to, UserID: h.currentUser(r)})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mySalesResponse{Stats: report.Mine(sales), Sales: sales})
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sales, err := h.salesWithLines(r, store.SaleFilter{From: from, To: to})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report.Summarize(sales))
}

func (h *Handler) salesWithLines(r *http.Request, f store.SaleFilter) ([]domain.Sale, error) {
	sales, err := h.store.ListSales(r.Context(), f)
	if err != nil || len(sales) == 0 {
		return sales, err
	}
	ids := make([]string, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
	}
	lines, err := h.store.SaleLines(r.Context(), ids)
	if err != nil {
		return nil, err
	}
	bySale := make(map[string][]domain.SaleLine, len(sales))
	for _, l := range lines {
		bySale[l.SaleID] = append(bySale[l.SaleID], l)
	}
	for i := range sales {
		sales[i].Lines = bySale[sales[i].ID]
	}
	return sales, nil
}

func (h *Handler) listReconciliations(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	flags, err := h.store.ListReconciliations(r.Context(), r.URL.Query().Get("all") == "true")
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, flags)
}

func (h *Handler) resolveReconciliation(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.store.ResolveReconciliation(r.Context(), id); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "reconciliation resolved", "reconciliation_id", id, "user_id", h.currentUser(r))
	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
