package pos

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"medeasy/pos/domain"
)

var errStoreDown = errors.New("store down")

// fakeStore is an in-memory RecordStore with fault injection.
type fakeStore struct {
	mu     sync.Mutex
	stock  map[string]int64
	sales  []domain.Sale
	lines  []domain.SaleLine
	writes int
	nextID int

	stockErr      error
	saleErr       error
	linesErr      error
	failDecrement map[string]error

	// When set, InsertSale signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func newFakeStore(stock map[string]int64) *fakeStore {
	return &fakeStore{stock: stock, failDecrement: map[string]error{}}
}

func (f *fakeStore) StockLevels(_ context.Context, ids []string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stockErr != nil {
		return nil, f.stockErr
	}
	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		if q, ok := f.stock[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (f *fakeStore) InsertSale(_ context.Context, sale *domain.Sale) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saleErr != nil {
		return f.saleErr
	}
	f.nextID++
	sale.ID = fmt.Sprintf("sale-%d", f.nextID)
	f.sales = append(f.sales, *sale)
	f.writes++
	return nil
}

func (f *fakeStore) InsertSaleLines(_ context.Context, lines []domain.SaleLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linesErr != nil {
		return f.linesErr
	}
	for i := range lines {
		f.nextID++
		lines[i].ID = fmt.Sprintf("line-%d", f.nextID)
	}
	f.lines = append(f.lines, lines...)
	f.writes++
	return nil
}

func (f *fakeStore) DecrementStock(_ context.Context, productID string, quantity int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDecrement[productID]; err != nil {
		return err
	}
	if f.stock[productID] < quantity {
		return errors.New("would go negative")
	}
	f.stock[productID] -= quantity
	f.writes++
	return nil
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type staticIdentity string

func (s staticIdentity) CurrentUserID(context.Context) (string, bool) {
	return string(s), s != ""
}
