package pos

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrStockChanged         = errors.New("stock changed since the cart was built")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrCommitInProgress     = errors.New("commit already in progress")
	ErrSaleWriteFailed      = errors.New("sale write failed")
	ErrPartialCommit        = errors.New("sale may be incomplete")
	ErrCatalogUnavailable   = errors.New("catalog unavailable")
	ErrCartFailed           = errors.New("cart holds a partially committed sale, clear it first")
	ErrLineNotFound         = errors.New("product is not in the cart")
	ErrInvalidItem          = errors.New("invalid catalog item")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrNoActingUser         = errors.New("no acting user")
)

// Stage names the commit step a partial commit stopped at.
type Stage string

const (
	StageLines Stage = "lines"
	StageStock Stage = "stock"
)

type InsufficientStockError struct {
	ProductID string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type StockChangedError struct {
	Violations []Violation
}

func (e *StockChangedError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s (requested %d, available %d)", v.ProductID, v.Requested, v.Available)
	}
	return ErrStockChanged.Error() + ": " + strings.Join(parts, ", ")
}

func (e *StockChangedError) Is(target error) bool { return target == ErrStockChanged }

// ProductID returns the first offending product.
func (e *StockChangedError) ProductID() string {
	if len(e.Violations) == 0 {
		return ""
	}
	return e.Violations[0].ProductID
}

// Available returns the quantity now permissible for the first offending product.
func (e *StockChangedError) Available() int64 {
	if len(e.Violations) == 0 {
		return 0
	}
	return e.Violations[0].Available
}

// SaleWriteError means the sale header was not written. Nothing was persisted
// and the cart is still usable.
type SaleWriteError struct {
	Err error
}

func (e *SaleWriteError) Error() string { return fmt.Sprintf("%v: %v", ErrSaleWriteFailed, e.Err) }

func (e *SaleWriteError) Is(target error) bool { return target == ErrSaleWriteFailed }

func (e *SaleWriteError) Unwrap() error { return e.Err }

// PartialCommitError means the sale header exists but a later step failed.
// AppliedProductIDs lists products whose stock was decremented, PendingProductIDs
// those that were not.
type PartialCommitError struct {
	SaleID            string
	Stage             Stage
	AppliedProductIDs []string
	PendingProductIDs []string
	Err               error
}

func (e *PartialCommitError) Error() string {
	msg := fmt.Sprintf("partial commit of sale %s at stage %s", e.SaleID, e.Stage)
	if e.Stage == StageStock {
		msg += fmt.Sprintf(" (applied %v, pending %v)", e.AppliedProductIDs, e.PendingProductIDs)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PartialCommitError) Is(target error) bool { return target == ErrPartialCommit }

func (e *PartialCommitError) Unwrap() error { return e.Err }
