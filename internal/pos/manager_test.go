package pos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medeasy/pos/domain"
)

// buildCart returns a manager holding A x2 at 10 and B x1 at 5.
func buildCart(t *testing.T, store *fakeStore) *Manager {
	t.Helper()
	m := NewManager(store, nil)
	a := item("A", "10", 5)
	require.NoError(t, m.AddItem(a))
	require.NoError(t, m.AddItem(a))
	require.NoError(t, m.AddItem(item("B", "5", 3)))
	return m
}

func TestCommit_EndToEnd(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5, "B": 3})
	m := buildCart(t, store)
	require.True(t, m.Total().Equal(decimal.NewFromInt(25)))

	sale, err := m.Commit(context.Background(), domain.PaymentCash, "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, sale.ID)
	assert.Equal(t, "user-1", sale.UserID)
	assert.Equal(t, domain.PaymentCash, sale.PaymentMethod)
	assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(25)))
	assert.False(t, sale.CreatedAt.IsZero())
	require.Len(t, sale.Lines, 2)
	assert.True(t, sale.Lines[0].Subtotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, sale.Lines[1].Subtotal.Equal(decimal.NewFromInt(5)))
	for _, l := range sale.Lines {
		assert.Equal(t, sale.ID, l.SaleID)
	}

	assert.Equal(t, int64(3), store.stock["A"])
	assert.Equal(t, int64(2), store.stock["B"])
	assert.Len(t, store.sales, 1)
	assert.Len(t, store.lines, 2)

	assert.Equal(t, StateCommitted, m.State())
	assert.Empty(t, m.Lines())
}

func TestCommit_EmptyCart(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5})
	m := NewManager(store, nil)

	_, err := m.Commit(context.Background(), domain.PaymentCash, "user-1")

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, store.writeCount())
}

func TestCommit_StockChangedWritesNothing(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 1, "B": 3})
	m := buildCart(t, store)

	_, err := m.Commit(context.Background(), domain.PaymentCard, "user-1")

	require.ErrorIs(t, err, ErrStockChanged)
	var changed *StockChangedError
	require.ErrorAs(t, err, &changed)
	assert.Equal(t, "A", changed.ProductID())
	assert.Equal(t, int64(1), changed.Available())
	assert.Zero(t, store.writeCount())
	assert.Equal(t, int64(1), store.stock["A"])
	assert.Equal(t, StateBuilding, m.State())
	assert.Len(t, m.Lines(), 2)
}

func TestCommit_StockReadFailure(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5, "B": 3})
	store.stockErr = errStoreDown
	m := buildCart(t, store)

	_, err := m.Commit(context.Background(), domain.PaymentCash, "user-1")

	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Zero(t, store.writeCount())
	assert.Equal(t, StateBuilding, m.State())
}

func TestCommit_SaleHeaderFailureIsRetryable(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5, "B": 3})
	store.saleErr = errStoreDown
	m := buildCart(t, store)

	_, err := m.Commit(context.Background(), domain.PaymentCash, "user-1")

	require.ErrorIs(t, err, ErrSaleWriteFailed)
	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, errors.Is(err, ErrPartialCommit))
	assert.Zero(t, store.writeCount())
	assert.Equal(t, StateBuilding, m.State())

	store.saleErr = nil
	sale, err := m.Commit(context.Background(), domain.PaymentCash, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sale.ID)
}

func TestCommit_LineFailureLeavesOrphanedHeader(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5, "B": 3})
	store.linesErr = errStoreDown
	m := buildCart(t, store)

	sale, err := m.Commit(context.Background(), domain.PaymentCash, "user-1")

	assert.Nil(t, sale)
	require.ErrorIs(t, err, ErrPartialCommit)
	var partial *PartialCommitError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, StageLines, partial.Stage)
	require.Len(t, store.sales, 1)
	assert.Equal(t, store.sales[0].ID, partial.SaleID)
	assert.Empty(t, partial.AppliedProductIDs)
	assert.Empty(t, store.lines)
	assert.Equal(t, int64(5), store.stock["A"])
	assert.Equal(t, int64(3), store.stock["B"])
	assert.Equal(t, StateFailed, m.State())
}

func TestCommit_StockFailureReportsAppliedProducts(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5, "B": 3, "C": 9})
	store.failDecrement["B"] = errStoreDown
	m := buildCart(t, store)
	require.NoError(t, m.AddItem(item("C", "1", 9)))

	_, err := m.Commit(context.Background(), domain.PaymentMobile, "user-1")

	var partial *PartialCommitError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, StageStock, partial.Stage)
	assert.Equal(t, []string{"A"}, partial.AppliedProductIDs)
	assert.Equal(t, []string{"B", "C"}, partial.PendingProductIDs)
	assert.Equal(t, store.sales[0].ID, partial.SaleID)
	assert.Len(t, store.lines, 3)
	assert.Equal(t, int64(3), store.stock["A"])
	assert.Equal(t, int64(3), store.stock["B"])
	assert.Equal(t, int64(9), store.stock["C"])
	assert.Equal(t, StateFailed, m.State())
}

func TestFailedCartRejectsReuseUntilCleared(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5, "B": 3})
	store.linesErr = errStoreDown
	m := buildCart(t, store)
	_, err := m.Commit(context.Background(), domain.PaymentCash, "user-1")
	require.ErrorIs(t, err, ErrPartialCommit)

	_, err = m.Commit(context.Background(), domain.PaymentCash, "user-1")
	assert.ErrorIs(t, err, ErrCartFailed)
	assert.ErrorIs(t, m.AddItem(item("A", "10", 5)), ErrCartFailed)
	assert.ErrorIs(t, m.SetQuantity("A", 1), ErrCartFailed)
	assert.Len(t, store.sales, 1)

	require.NoError(t, m.Clear())
	assert.Equal(t, StateEmpty, m.State())
	assert.NoError(t, m.AddItem(item("A", "10", 5)))
}

func TestCommit_SecondCallWhileInFlight(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5, "B": 3})
	store.entered = make(chan struct{})
	store.release = make(chan struct{})
	m := buildCart(t, store)

	type result struct {
		sale *domain.Sale
		err  error
	}
	done := make(chan result, 1)
	go func() {
		sale, err := m.Commit(context.Background(), domain.PaymentCash, "user-1")
		done <- result{sale, err}
	}()

	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first commit never reached the sale insert")
	}
	assert.Equal(t, StateCommitInFlight, m.State())

	_, err := m.Commit(context.Background(), domain.PaymentCash, "user-1")
	assert.ErrorIs(t, err, ErrCommitInProgress)
	assert.ErrorIs(t, m.AddItem(item("A", "10", 5)), ErrCommitInProgress)
	assert.ErrorIs(t, m.Clear(), ErrCommitInProgress)

	close(store.release)
	first := <-done
	require.NoError(t, first.err)
	assert.Len(t, store.sales, 1)
	assert.Equal(t, StateCommitted, m.State())
}

func TestCommit_ActingUser(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5})

	m := NewManager(store, staticIdentity("user-from-session"))
	require.NoError(t, m.AddItem(item("A", "1", 5)))
	sale, err := m.Commit(context.Background(), domain.PaymentCash, "")
	require.NoError(t, err)
	assert.Equal(t, "user-from-session", sale.UserID)

	anon := NewManager(store, staticIdentity(""))
	require.NoError(t, anon.AddItem(item("A", "1", 4)))
	_, err = anon.Commit(context.Background(), domain.PaymentCash, "")
	assert.ErrorIs(t, err, ErrNoActingUser)
	assert.Equal(t, StateBuilding, anon.State())
}

func TestCommit_InvalidPaymentMethod(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 5, "B": 3})
	m := buildCart(t, store)

	_, err := m.Commit(context.Background(), domain.PaymentMethod("cheque"), "user-1")

	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	assert.Zero(t, store.writeCount())
}

func TestViolations_DoesNotTouchCart(t *testing.T) {
	store := newFakeStore(map[string]int64{"A": 1, "B": 3})
	m := buildCart(t, store)

	violations, err := m.Violations(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []Violation{{ProductID: "A", Requested: 2, Available: 1}}, violations)
	assert.Len(t, m.Lines(), 2)
	assert.Equal(t, StateBuilding, m.State())
}

func TestRestore(t *testing.T) {
	m := NewManager(newFakeStore(nil), nil)

	require.NoError(t, m.Restore([]CartLine{{Item: item("A", "2.5", 4), Quantity: 2}}))

	assert.Equal(t, StateBuilding, m.State())
	assert.True(t, m.Total().Equal(decimal.NewFromInt(5)))
}
