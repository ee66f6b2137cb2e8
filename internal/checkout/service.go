// Package checkout keeps the open point-of-sale sessions. Each session owns one
// pos.Manager and belongs to the user who opened it.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"medeasy/pos/domain"
	"medeasy/pos/internal/cache"
	"medeasy/pos/internal/events"
	"medeasy/pos/internal/pos"
)

var ErrSessionNotFound = errors.New("checkout session not found")

type Catalog interface {
	Item(ctx context.Context, id string) (domain.CatalogItem, error)
}

type Flagger interface {
	FlagReconciliation(ctx context.Context, r *domain.Reconciliation) error
}

type Deps struct {
	Store    pos.RecordStore
	Catalog  Catalog
	Flags    Flagger
	Cache    cache.CartCache // optional
	Events   events.Publisher
	Identity pos.Identity
	Logger   *slog.Logger
}

type Service struct {
	deps          Deps
	commitTimeout time.Duration
	idleTimeout   time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	id       string
	owner    string
	cart     *pos.Manager
	lastUsed time.Time // guarded by Service.mu
}

// View is the caller-facing state of a session.
type View struct {
	ID    string          `json:"id"`
	State pos.State       `json:"state"`
	Lines []pos.CartLine  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func NewService(deps Deps, commitTimeout time.Duration) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Events == nil {
		deps.Events = events.NewLogPublisher(deps.Logger)
	}
	return &Service{
		deps:          deps,
		commitTimeout: commitTimeout,
		idleTimeout:   cache.BaseTTL,
		now:           func() time.Time { return time.Now().UTC() },
		sessions:      make(map[string]*session),
	}
}

func (s *Service) Open(ctx context.Context, owner string) (View, error) {
	if owner == "" {
		return View{}, pos.ErrNoActingUser
	}
	sess := &session{id: uuid.NewString(), owner: owner, cart: pos.NewManager(s.deps.Store, s.deps.Identity)}
	s.mu.Lock()
	sess.lastUsed = s.now()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.persist(ctx, sess)
	return view(sess), nil
}

func (s *Service) Get(ctx context.Context, id, owner string) (View, error) {
	sess, err := s.lookup(ctx, id, owner)
	if err != nil {
		return View{}, err
	}
	return view(sess), nil
}

// AddItem looks the product up in the catalog and adds one unit. A catalog
// failure leaves the cart untouched.
func (s *Service) AddItem(ctx context.Context, id, owner, productID string) (View, error) {
	sess, err := s.lookup(ctx, id, owner)
	if err != nil {
		return View{}, err
	}
	item, err := s.deps.Catalog.Item(ctx, productID)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, sess, func(m *pos.Manager) error { return m.AddItem(item) })
}

func (s *Service) SetQuantity(ctx context.Context, id, owner, productID string, quantity int64) (View, error) {
	sess, err := s.lookup(ctx, id, owner)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, sess, func(m *pos.Manager) error { return m.SetQuantity(productID, quantity) })
}

func (s *Service) RemoveItem(ctx context.Context, id, owner, productID string) (View, error) {
	sess, err := s.lookup(ctx, id, owner)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, sess, func(m *pos.Manager) error { return m.RemoveItem(productID) })
}

func (s *Service) Clear(ctx context.Context, id, owner string) (View, error) {
	sess, err := s.lookup(ctx, id, owner)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, sess, func(m *pos.Manager) error { return m.Clear() })
}

func (s *Service) Violations(ctx context.Context, id, owner string) ([]pos.Violation, error) {
	sess, err := s.lookup(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	violations, err := sess.cart.Violations(ctx)
	if err != nil {
		return nil, err
	}
	if violations == nil {
		violations = []pos.Violation{}
	}
	return violations, nil
}

// Commit turns the session's cart into a sale. A committed session is closed.
// A partially committed sale is flagged for reconciliation and announced.
func (s *Service) Commit(ctx context.Context, id, owner string, method domain.PaymentMethod) (*domain.Sale, error) {
	sess, err := s.lookup(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	// Once started, only the commit timeout can cut the pipeline short.
	after := context.WithoutCancel(ctx)
	commitCtx := after
	if s.commitTimeout > 0 {
		var cancel context.CancelFunc
		commitCtx, cancel = context.WithTimeout(after, s.commitTimeout)
		defer cancel()
	}
	sale, err := sess.cart.Commit(commitCtx, method, owner)

	var partial *pos.PartialCommitError
	switch {
	case err == nil:
		s.deps.Logger.InfoContext(ctx, "sale committed", "session_id", sess.id, "sale_id", sale.ID,
			"total", sale.TotalAmount.String(), "lines", len(sale.Lines))
		s.publish(after, events.SaleCommitted(sale))
		s.close(after, sess)
		return sale, nil
	case errors.As(err, &partial):
		s.deps.Logger.ErrorContext(ctx, "sale partially committed", "session_id", sess.id, "sale_id", partial.SaleID,
			"stage", partial.Stage, "applied_product_ids", partial.AppliedProductIDs,
			"pending_product_ids", partial.PendingProductIDs, "error", partial.Err)
		s.flag(after, partial)
		// The failed cart stays in memory until cleared but is not restorable.
		s.forget(after, sess.id)
		return nil, err
	default:
		s.deps.Logger.WarnContext(ctx, "commit rejected", "session_id", sess.id, "error", err)
		return nil, err
	}
}

// Discard abandons a session. A session whose commit is running cannot be
// discarded.
func (s *Service) Discard(ctx context.Context, id, owner string) error {
	sess, err := s.lookup(ctx, id, owner)
	if err != nil {
		return err
	}
	if sess.cart.State() == pos.StateCommitInFlight {
		return pos.ErrCommitInProgress
	}
	s.close(ctx, sess)
	s.deps.Logger.InfoContext(ctx, "session discarded", "session_id", id)
	return nil
}

// EvictIdle drops sessions unused for longer than the idle timeout from
// memory and reports how many went. Their cache entries expire on their own.
func (s *Service) EvictIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.idleTimeout)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		if !sess.lastUsed.Before(cutoff) || sess.cart.State() == pos.StateCommitInFlight {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	if evicted > 0 {
		s.deps.Logger.InfoContext(ctx, "evicted idle sessions", "count", evicted)
	}
	return evicted
}

// Janitor runs EvictIdle every interval until ctx is done.
func (s *Service) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictIdle(ctx)
		}
	}
}

func (s *Service) mutate(ctx context.Context, sess *session, fn func(*pos.Manager) error) (View, error) {
	if err := fn(sess.cart); err != nil {
		return view(sess), err
	}
	s.persist(ctx, sess)
	return view(sess), nil
}

// lookup finds an open session owned by owner, restoring it from the cart
// cache when this process does not hold it.
func (s *Service) lookup(ctx context.Context, id, owner string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastUsed = s.now()
	}
	s.mu.Unlock()
	if ok {
		if sess.owner != owner {
			return nil, ErrSessionNotFound
		}
		return sess, nil
	}
	if s.deps.Cache == nil {
		return nil, ErrSessionNotFound
	}

	snap, err := s.deps.Cache.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.deps.Logger.WarnContext(ctx, "cart cache read failed", "session_id", id, "error", err)
		}
		return nil, ErrSessionNotFound
	}
	if snap.OwnerID != owner {
		return nil, ErrSessionNotFound
	}
	restored := &session{id: id, owner: snap.OwnerID, cart: pos.NewManager(s.deps.Store, s.deps.Identity)}
	if err := restored.cart.Restore(snap.Lines); err != nil {
		s.deps.Logger.WarnContext(ctx, "discarding unusable cart snapshot", "session_id", id, "error", err)
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	restored.lastUsed = s.now()
	s.sessions[id] = restored
	return restored, nil
}

func (s *Service) persist(ctx context.Context, sess *session) {
	if s.deps.Cache == nil {
		return
	}
	snap := &cache.Snapshot{SessionID: sess.id, OwnerID: sess.owner, Lines: sess.cart.Lines(), UpdatedAt: s.now()}
	if err := s.deps.Cache.Set(ctx, snap); err != nil {
		s.deps.Logger.WarnContext(ctx, "cart cache write failed", "session_id", sess.id, "error", err)
	}
}

func (s *Service) close(ctx context.Context, sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	s.forget(ctx, sess.id)
}

func (s *Service) forget(ctx context.Context, id string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Delete(ctx, id); err != nil {
		s.deps.Logger.WarnContext(ctx, "cart cache delete failed", "session_id", id, "error", err)
	}
}

func (s *Service) flag(ctx context.Context, partial *pos.PartialCommitError) {
	r := &domain.Reconciliation{
		SaleID:            partial.SaleID,
		Stage:             string(partial.Stage),
		AppliedProductIDs: partial.AppliedProductIDs,
		PendingProductIDs: partial.PendingProductIDs,
		Detail:            fmt.Sprint(partial.Err),
	}
	if s.deps.Flags != nil {
		if err := s.deps.Flags.FlagReconciliation(ctx, r); err != nil {
			s.deps.Logger.ErrorContext(ctx, "failed to flag sale for reconciliation", "sale_id", r.SaleID, "error", err)
		}
	}
	s.publish(ctx, events.ReconciliationRequired(r))
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.deps.Events.Publish(ctx, e); err != nil {
		s.deps.Logger.ErrorContext(ctx, "failed to publish event", "event_type", e.Type, "sale_id", e.SaleID, "error", err)
	}
}

func view(sess *session) View {
	return View{ID: sess.id, State: sess.cart.State(), Lines: sess.cart.Lines(), Total: sess.cart.Total()}
}
