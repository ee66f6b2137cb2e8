// Package pos holds the point-of-sale cart and the sequence that turns a cart
// into a persisted sale.
//
// The record store offers no multi-row transaction, so Commit runs an ordered
// pipeline (re-validate stock, sale header, sale lines, stock decrements) and
// reports exactly which step failed. A sale header is always written before any
// stock moves so that a partial failure leaves an auditable sale row behind.
package pos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"medeasy/pos/domain"
)

type State string

const (
	StateEmpty          State = "empty"
	StateBuilding       State = "building"
	StateCommitInFlight State = "commit_in_flight"
	StateCommitted      State = "committed"
	StateFailed         State = "failed"
)

// RecordStore is the subset of the record store the commit pipeline writes to.
type RecordStore interface {
	StockLevels(ctx context.Context, productIDs []string) (map[string]int64, error)
	InsertSale(ctx context.Context, sale *domain.Sale) error
	InsertSaleLines(ctx context.Context, lines []domain.SaleLine) error
	// DecrementStock must not take stock below zero.
	DecrementStock(ctx context.Context, productID string, quantity int64) error
}

// Identity supplies the acting user for sale attribution.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// Manager owns one cart for one checkout session. At most one commit runs at a
// time; cart mutations are rejected while it does.
type Manager struct {
	store    RecordStore
	identity Identity
	now      func() time.Time

	mu    sync.Mutex
	cart  Cart
	state State
}

func NewManager(store RecordStore, identity Identity) *Manager {
	return &Manager{
		store:    store,
		identity: identity,
		now:      func() time.Time { return time.Now().UTC() },
		state:    StateEmpty,
	}
}

// Restore replaces the cart with previously snapshotted lines.
func (m *Manager) Restore(lines []CartLine) error {
	cart, err := NewCart(lines)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.mutableLocked(); err != nil {
		return err
	}
	m.cart = cart
	m.settleLocked()
	return nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Lines() []CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.Lines()
}

func (m *Manager) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cart.Total()
}

// AddItem adds one unit of item, refreshing the line's snapshot to item.
func (m *Manager) AddItem(item domain.CatalogItem) error {
	if err := validateItem(item); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.mutableLocked(); err != nil {
		return err
	}
	if err := m.cart.add(item); err != nil {
		return err
	}
	m.settleLocked()
	return nil
}

// SetQuantity sets a line's quantity. Zero or less removes the line; more than
// the snapshotted stock is rejected and the line is left unchanged.
func (m *Manager) SetQuantity(productID string, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.mutableLocked(); err != nil {
		return err
	}
	if err := m.cart.set(productID, quantity); err != nil {
		return err
	}
	m.settleLocked()
	return nil
}

func (m *Manager) RemoveItem(productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.mutableLocked(); err != nil {
		return err
	}
	m.cart.remove(productID)
	m.settleLocked()
	return nil
}

// Clear empties the cart. It is also how a failed cart is released for reuse.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateCommitInFlight {
		return ErrCommitInProgress
	}
	m.cart = Cart{}
	m.state = StateEmpty
	return nil
}

// Violations re-reads stock and reports lines that no longer fit. It does not
// change the cart.
func (m *Manager) Violations(ctx context.Context) ([]Violation, error) {
	m.mu.Lock()
	cart := Cart{lines: m.cart.Lines()}
	m.mu.Unlock()
	if cart.Len() == 0 {
		return nil, nil
	}
	fresh, err := m.store.StockLevels(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	return Revalidate(cart, fresh), nil
}

// Commit persists the cart as a sale attributed to actingUserID, or to the
// identity provider's current user when actingUserID is empty.
//
// Failures before the sale header is written leave the cart in Building.
// Failures after it return a *PartialCommitError and move the cart to Failed.
// No write is ever retried.
func (m *Manager) Commit(ctx context.Context, method domain.PaymentMethod, actingUserID string) (*domain.Sale, error) {
	m.mu.Lock()
	switch {
	case m.state == StateCommitInFlight:
		m.mu.Unlock()
		return nil, ErrCommitInProgress
	case m.state == StateFailed:
		m.mu.Unlock()
		return nil, ErrCartFailed
	case m.cart.Len() == 0:
		m.mu.Unlock()
		return nil, ErrEmptyCart
	case !method.Valid():
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}
	userID := actingUserID
	if userID == "" && m.identity != nil {
		userID, _ = m.identity.CurrentUserID(ctx)
	}
	if userID == "" {
		m.mu.Unlock()
		return nil, ErrNoActingUser
	}
	cart := Cart{lines: m.cart.Lines()}
	m.state = StateCommitInFlight
	m.mu.Unlock()

	sale, err := m.commit(ctx, cart, method, userID)

	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case err == nil:
		m.cart = Cart{}
		m.state = StateCommitted
	case isPartial(err):
		m.state = StateFailed
	default:
		m.state = StateBuilding
	}
	return sale, err
}

func (m *Manager) commit(ctx context.Context, cart Cart, method domain.PaymentMethod, userID string) (*domain.Sale, error) {
	fresh, err := m.store.StockLevels(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if violations := Revalidate(cart, fresh); len(violations) > 0 {
		return nil, &StockChangedError{Violations: violations}
	}

	sale := &domain.Sale{
		CreatedAt:     m.now(),
		UserID:        userID,
		PaymentMethod: method,
		TotalAmount:   cart.Total(),
	}
	if err := m.store.InsertSale(ctx, sale); err != nil {
		return nil, &SaleWriteError{Err: err}
	}

	lines := make([]domain.SaleLine, cart.Len())
	for i, l := range cart.lines {
		lines[i] = domain.SaleLine{
			SaleID:    sale.ID,
			ProductID: l.Item.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.Item.UnitPrice,
			Subtotal:  l.Subtotal(),
		}
	}
	if err := m.store.InsertSaleLines(ctx, lines); err != nil {
		return nil, &PartialCommitError{SaleID: sale.ID, Stage: StageLines, PendingProductIDs: cart.ProductIDs(), Err: err}
	}
	sale.Lines = lines

	applied := make([]string, 0, cart.Len())
	for i, l := range cart.lines {
		if err := m.store.DecrementStock(ctx, l.Item.ID, l.Quantity); err != nil {
			pending := make([]string, 0, cart.Len()-i)
			for _, rest := range cart.lines[i:] {
				pending = append(pending, rest.Item.ID)
			}
			return nil, &PartialCommitError{
				SaleID:            sale.ID,
				Stage:             StageStock,
				AppliedProductIDs: applied,
				PendingProductIDs: pending,
				Err:               err,
			}
		}
		applied = append(applied, l.Item.ID)
	}
	return sale, nil
}

func (m *Manager) mutableLocked() error {
	switch m.state {
	case StateCommitInFlight:
		return ErrCommitInProgress
	case StateFailed:
		return ErrCartFailed
	}
	return nil
}

func (m *Manager) settleLocked() {
	if m.cart.Len() == 0 {
		m.state = StateEmpty
	} else {
		m.state = StateBuilding
	}
}

func isPartial(err error) bool {
	var partial *PartialCommitError
	return errors.As(err, &partial)
}
