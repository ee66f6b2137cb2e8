package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medeasy/pos/internal/catalog"
	"medeasy/pos/internal/checkout"
	"medeasy/pos/internal/pos"
	"medeasy/pos/internal/store"
)

const dateLayout = "2006-01-02"

type errorBody struct {
	Error      string          `json:"error"`
	Code       string          `json:"code,omitempty"`
	SaleID     string          `json:"sale_id,omitempty"`
	Violations []pos.Violation `json:"violations,omitempty"`
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: message})
}

// respondFailure maps a service error onto a status code. Only a committed sale
// is ever reported as success; a partial commit gets its own code.
func (h *Handler) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		partial *pos.PartialCommitError
		changed *pos.StockChangedError
	)
	switch {
	case errors.As(err, &partial):
		respondJSON(w, http.StatusInternalServerError, errorBody{
			Error:  "sale may be incomplete — contact support",
			Code:   "partial_commit",
			SaleID: partial.SaleID,
		})
	case errors.As(err, &changed):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "stock_changed", Violations: changed.Violations})
	case errors.Is(err, pos.ErrInsufficientStock):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "insufficient_stock"})
	case errors.Is(err, pos.ErrCommitInProgress):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "commit_in_progress"})
	case errors.Is(err, pos.ErrCartFailed):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "cart_failed"})
	case errors.Is(err, pos.ErrEmptyCart):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: "empty_cart"})
	case errors.Is(err, pos.ErrSaleWriteFailed):
		h.logger.ErrorContext(r.Context(), "sale write failed", "error", err)
		respondJSON(w, http.StatusBadGateway, errorBody{Error: "sale could not be recorded, nothing was charged", Code: "sale_write_failed"})
	case errors.Is(err, pos.ErrCatalogUnavailable):
		h.logger.ErrorContext(r.Context(), "catalog unavailable", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "catalog unavailable", Code: "catalog_unavailable"})
	case errors.Is(err, pos.ErrNoActingUser):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, pos.ErrInvalidPaymentMethod), errors.Is(err, pos.ErrInvalidItem), errors.Is(err, store.ErrInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrSessionNotFound), errors.Is(err, catalog.ErrUnknownProduct),
		errors.Is(err, pos.ErrLineNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInsufficientStock):
		respondJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "insufficient_stock"})
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseDateRange reads from/to as whole days; to is inclusive.
func parseDateRange(r *http.Request) (from, to *time.Time, err error) {
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, nil, errors.New("from must be in YYYY-MM-DD format")
		}
		from = &t
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, nil, errors.New("to must be in YYYY-MM-DD format")
		}
		end := t.AddDate(0, 0, 1)
		to = &end
	}
	return from, to, nil
}
