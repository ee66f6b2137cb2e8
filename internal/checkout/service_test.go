package checkout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medeasy/pos/domain"
	"medeasy/pos/internal/cache"
	"medeasy/pos/internal/catalog"
	"medeasy/pos/internal/database"
	"medeasy/pos/internal/events"
	"medeasy/pos/internal/migrations"
	"medeasy/pos/internal/pos"
	"medeasy/pos/internal/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// failingStore fails the stock decrement for one product.
type failingStore struct {
	*store.Store
	failOn string
}

func (f failingStore) DecrementStock(ctx context.Context, productID string, quantity int64) error {
	if productID == f.failOn {
		return errors.New("connection reset")
	}
	return f.Store.DecrementStock(ctx, productID, quantity)
}

// slowStore holds the sale header write until the context is done.
type slowStore struct {
	*store.Store
}

func (s slowStore) InsertSale(ctx context.Context, sale *domain.Sale) error {
	<-ctx.Done()
	return ctx.Err()
}

// hangupStore cancels the caller's context right after the sale header is
// written, as a client dropping the connection mid-commit would.
type hangupStore struct {
	*store.Store
	hangup context.CancelFunc
}

func (s hangupStore) InsertSale(ctx context.Context, sale *domain.Sale) error {
	err := s.Store.InsertSale(ctx, sale)
	s.hangup()
	return err
}

type downCatalog struct{}

func (downCatalog) Item(ctx context.Context, id string) (domain.CatalogItem, error) {
	return domain.CatalogItem{}, fmt.Errorf("%w: dial tcp: refused", pos.ErrCatalogUnavailable)
}

type harness struct {
	store   *store.Store
	cache   *cache.RedisCache
	redis   *miniredis.Miniredis
	events  *recordingPublisher
	logs    *bytes.Buffer
	cashier string
	drugA   string
	drugB   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db, database.DriverSQLite))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	h := &harness{
		store:  store.New(db),
		cache:  cache.NewRedisCache(client),
		redis:  mr,
		events: &recordingPublisher{},
		logs:   &bytes.Buffer{},
	}
	ctx := context.Background()
	u := &domain.User{Email: "cashier@example.com", FullName: "Cashier", Password: "hash"}
	require.NoError(t, h.store.CreateUser(ctx, u))
	h.cashier = u.ID

	a := &domain.Drug{Name: "Amoxicillin", Quantity: 5, SellingPrice: decimal.NewFromInt(10)}
	b := &domain.Drug{Name: "Bisoprolol", Quantity: 3, SellingPrice: decimal.NewFromInt(5)}
	require.NoError(t, h.store.CreateDrug(ctx, a))
	require.NoError(t, h.store.CreateDrug(ctx, b))
	h.drugA, h.drugB = a.ID, b.ID
	return h
}

func (h *harness) service(rs pos.RecordStore, cat Catalog, timeout time.Duration) *Service {
	if rs == nil {
		rs = h.store
	}
	if cat == nil {
		cat = catalog.NewReader(h.store)
	}
	return NewService(Deps{
		Store:   rs,
		Catalog: cat,
		Flags:   h.store,
		Cache:   h.cache,
		Events:  h.events,
		Logger:  slog.New(slog.NewJSONHandler(h.logs, nil)),
	}, timeout)
}

func (h *harness) stock(t *testing.T, id string) int64 {
	levels, err := h.store.StockLevels(context.Background(), []string{id})
	require.NoError(t, err)
	return levels[id]
}

func (h *harness) fillCart(t *testing.T, svc *Service) View {
	t.Helper()
	ctx := context.Background()
	v, err := svc.Open(ctx, h.cashier)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, v.ID, h.cashier, h.drugA)
	require.NoError(t, err)
	_, err = svc.SetQuantity(ctx, v.ID, h.cashier, h.drugA, 2)
	require.NoError(t, err)
	v, err = svc.AddItem(ctx, v.ID, h.cashier, h.drugB)
	require.NoError(t, err)
	return v
}

func TestCommit_Success(t *testing.T) {
	h := newHarness(t)
	svc := h.service(nil, nil, time.Second)
	ctx := context.Background()

	v := h.fillCart(t, svc)
	assert.Equal(t, pos.StateBuilding, v.State)
	assert.True(t, v.Total.Equal(decimal.NewFromInt(25)))
	assert.True(t, h.redis.Exists("cart:"+v.ID))

	sale, err := svc.Commit(ctx, v.ID, h.cashier, domain.PaymentCash)
	require.NoError(t, err)
	assert.Equal(t, h.cashier, sale.UserID)
	assert.Len(t, sale.Lines, 2)
	assert.Equal(t, int64(3), h.stock(t, h.drugA))
	assert.Equal(t, int64(2), h.stock(t, h.drugB))

	assert.Equal(t, []string{events.TypeSaleCommitted}, h.events.types())
	assert.False(t, h.redis.Exists("cart:"+v.ID))
	_, err = svc.Get(ctx, v.ID, h.cashier)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Contains(t, h.logs.String(), "sale committed")
}

func TestSessionsBelongToTheirOwner(t *testing.T) {
	h := newHarness(t)
	svc := h.service(nil, nil, time.Second)
	ctx := context.Background()

	v, err := svc.Open(ctx, h.cashier)
	require.NoError(t, err)

	_, err = svc.Get(ctx, v.ID, "someone-else")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.AddItem(ctx, v.ID, "someone-else", h.drugA)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Get(ctx, "no-such-session", h.cashier)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Open(ctx, "")
	assert.ErrorIs(t, err, pos.ErrNoActingUser)
}

func TestAddItem_CatalogFailuresLeaveCartUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	svc := h.service(nil, nil, time.Second)
	v, err := svc.Open(ctx, h.cashier)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, v.ID, h.cashier, "unknown")
	assert.ErrorIs(t, err, catalog.ErrUnknownProduct)

	down := h.service(nil, downCatalog{}, time.Second)
	dv, err := down.Open(ctx, h.cashier)
	require.NoError(t, err)
	_, err = down.AddItem(ctx, dv.ID, h.cashier, h.drugA)
	assert.ErrorIs(t, err, pos.ErrCatalogUnavailable)

	got, err := down.Get(ctx, dv.ID, h.cashier)
	require.NoError(t, err)
	assert.Equal(t, pos.StateEmpty, got.State)
	assert.Empty(t, got.Lines)
}

func TestAddItem_OverStockRejected(t *testing.T) {
	h := newHarness(t)
	svc := h.service(nil, nil, time.Second)
	ctx := context.Background()
	v, err := svc.Open(ctx, h.cashier)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.AddItem(ctx, v.ID, h.cashier, h.drugB)
		require.NoError(t, err)
	}
	got, err := svc.AddItem(ctx, v.ID, h.cashier, h.drugB)
	assert.ErrorIs(t, err, pos.ErrInsufficientStock)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(3), got.Lines[0].Quantity)
}

func TestRestoreFromCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	v := h.fillCart(t, h.service(nil, nil, time.Second))

	// A fresh registry, as after a restart.
	restarted := h.service(nil, nil, time.Second)
	_, err := restarted.Get(ctx, v.ID, "someone-else")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got, err := restarted.Get(ctx, v.ID, h.cashier)
	require.NoError(t, err)
	assert.Equal(t, pos.StateBuilding, got.State)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(25)))

	_, err = restarted.Commit(ctx, v.ID, h.cashier, domain.PaymentCard)
	require.NoError(t, err)
}

func TestRemoveAndClear(t *testing.T) {
	h := newHarness(t)
	svc := h.service(nil, nil, time.Second)
	ctx := context.Background()
	v := h.fillCart(t, svc)

	got, err := svc.RemoveItem(ctx, v.ID, h.cashier, h.drugA)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)

	got, err = svc.Clear(ctx, v.ID, h.cashier)
	require.NoError(t, err)
	assert.Equal(t, pos.StateEmpty, got.State)

	_, err = svc.Commit(ctx, v.ID, h.cashier, domain.PaymentCash)
	assert.ErrorIs(t, err, pos.ErrEmptyCart)
}

func TestViolationsAndStockChanged(t *testing.T) {
	h := newHarness(t)
	svc := h.service(nil, nil, time.Second)
	ctx := context.Background()
	v := h.fillCart(t, svc)

	violations, err := svc.Violations(ctx, v.ID, h.cashier)
	require.NoError(t, err)
	assert.Empty(t, violations)

	require.NoError(t, h.store.DecrementStock(ctx, h.drugA, 4))

	violations, err = svc.Violations(ctx, v.ID, h.cashier)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, pos.Violation{ProductID: h.drugA, Requested: 2, Available: 1}, violations[0])

	_, err = svc.Commit(ctx, v.ID, h.cashier, domain.PaymentCash)
	var changed *pos.StockChangedError
	require.ErrorAs(t, err, &changed)
	assert.Equal(t, h.drugA, changed.ProductID())

	got, err := svc.Get(ctx, v.ID, h.cashier)
	require.NoError(t, err)
	assert.Equal(t, pos.StateBuilding, got.State)
	assert.Empty(t, h.events.types())
}

func TestCommit_PartialIsFlaggedAndAnnounced(t *testing.T) {
	h := newHarness(t)
	svc := h.service(failingStore{Store: h.store, failOn: h.drugB}, nil, time.Second)
	ctx := context.Background()
	v := h.fillCart(t, svc)

	_, err := svc.Commit(ctx, v.ID, h.cashier, domain.PaymentCash)
	var partial *pos.PartialCommitError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, pos.StageStock, partial.Stage)

	flags, err := h.store.ListReconciliations(ctx, false)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, partial.SaleID, flags[0].SaleID)
	assert.Equal(t, "stock", flags[0].Stage)
	assert.Equal(t, []string{h.drugA}, flags[0].AppliedProductIDs)
	assert.Equal(t, []string{h.drugB}, flags[0].PendingProductIDs)
	assert.Equal(t, []string{events.TypeReconciliationRequired}, h.events.types())

	got, err := svc.Get(ctx, v.ID, h.cashier)
	require.NoError(t, err)
	assert.Equal(t, pos.StateFailed, got.State)
	_, err = svc.AddItem(ctx, v.ID, h.cashier, h.drugA)
	assert.ErrorIs(t, err, pos.ErrCartFailed)

	got, err = svc.Clear(ctx, v.ID, h.cashier)
	require.NoError(t, err)
	assert.Equal(t, pos.StateEmpty, got.State)
}

func TestCommit_Timeout(t *testing.T) {
	h := newHarness(t)
	svc := h.service(slowStore{Store: h.store}, nil, 20*time.Millisecond)
	ctx := context.Background()
	v := h.fillCart(t, svc)

	_, err := svc.Commit(ctx, v.ID, h.cashier, domain.PaymentCash)
	assert.ErrorIs(t, err, pos.ErrSaleWriteFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got, err := svc.Get(ctx, v.ID, h.cashier)
	require.NoError(t, err)
	assert.Equal(t, pos.StateBuilding, got.State)
	assert.Equal(t, int64(5), h.stock(t, h.drugA))
}

func TestCommit_SurvivesCallerCancellation(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := h.service(hangupStore{Store: h.store, hangup: cancel}, nil, time.Second)
	v := h.fillCart(t, svc)

	sale, err := svc.Commit(ctx, v.ID, h.cashier, domain.PaymentCash)
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Len(t, sale.Lines, 2)
	assert.Equal(t, int64(3), h.stock(t, h.drugA))
	assert.Equal(t, int64(2), h.stock(t, h.drugB))

	flags, err := h.store.ListReconciliations(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, flags)
	assert.Equal(t, []string{events.TypeSaleCommitted}, h.events.types())
}

func TestCommit_NoTimeoutStillIgnoresCallerCancellation(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := h.service(hangupStore{Store: h.store, hangup: cancel}, nil, 0)
	v := h.fillCart(t, svc)

	_, err := svc.Commit(ctx, v.ID, h.cashier, domain.PaymentCash)
	require.NoError(t, err)
	assert.Equal(t, int64(3), h.stock(t, h.drugA))
}

func TestDiscard(t *testing.T) {
	h := newHarness(t)
	svc := h.service(nil, nil, time.Second)
	ctx := context.Background()
	v := h.fillCart(t, svc)
	require.True(t, h.redis.Exists("cart:"+v.ID))

	assert.ErrorIs(t, svc.Discard(ctx, v.ID, "someone-else"), ErrSessionNotFound)
	require.NoError(t, svc.Discard(ctx, v.ID, h.cashier))

	assert.False(t, h.redis.Exists("cart:"+v.ID))
	_, err := svc.Get(ctx, v.ID, h.cashier)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Discard(ctx, v.ID, h.cashier), ErrSessionNotFound)
	assert.Equal(t, int64(5), h.stock(t, h.drugA))
}

func TestDiscard_FailedCart(t *testing.T) {
	h := newHarness(t)
	svc := h.service(failingStore{Store: h.store, failOn: h.drugB}, nil, time.Second)
	ctx := context.Background()
	v := h.fillCart(t, svc)

	_, err := svc.Commit(ctx, v.ID, h.cashier, domain.PaymentCash)
	require.ErrorIs(t, err, pos.ErrPartialCommit)

	require.NoError(t, svc.Discard(ctx, v.ID, h.cashier))
	_, err = svc.Get(ctx, v.ID, h.cashier)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEvictIdle(t *testing.T) {
	h := newHarness(t)
	svc := h.service(nil, nil, time.Second)
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	svc.idleTimeout = 10 * time.Minute

	stale, err := svc.Open(ctx, h.cashier)
	require.NoError(t, err)
	clock = clock.Add(8 * time.Minute)
	fresh, err := svc.Open(ctx, h.cashier)
	require.NoError(t, err)

	clock = clock.Add(5 * time.Minute)
	assert.Equal(t, 1, svc.EvictIdle(ctx))

	svc.mu.Lock()
	_, staleKept := svc.sessions[stale.ID]
	_, freshKept := svc.sessions[fresh.ID]
	svc.mu.Unlock()
	assert.False(t, staleKept)
	assert.True(t, freshKept)

	// Using a session keeps it alive.
	clock = clock.Add(9 * time.Minute)
	_, err = svc.Get(ctx, fresh.ID, h.cashier)
	require.NoError(t, err)
	clock = clock.Add(9 * time.Minute)
	assert.Equal(t, 0, svc.EvictIdle(ctx))
	assert.Contains(t, h.logs.String(), "evicted idle sessions")
}

func TestJanitorStopsWithContext(t *testing.T) {
	h := newHarness(t)
	svc := h.service(nil, nil, time.Second)
	svc.idleTimeout = 0
	ctx, cancel := context.WithCancel(context.Background())

	v, err := svc.Open(context.Background(), h.cashier)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		svc.Janitor(ctx, 5*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		_, ok := svc.sessions[v.ID]
		return !ok
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
