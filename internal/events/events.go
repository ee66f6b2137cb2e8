// Package events announces sale outcomes to other systems.
package events

import (
	"context"
	"time"

	"medeasy/pos/domain"
)

const (
	TypeSaleCommitted          = "sale.committed"
	TypeReconciliationRequired = "sale.reconciliation_required"
)

type Event struct {
	Type       string    `json:"event_type"`
	SaleID     string    `json:"sale_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

func SaleCommitted(sale *domain.Sale) Event {
	return Event{Type: TypeSaleCommitted, SaleID: sale.ID, OccurredAt: time.Now().UTC(), Payload: sale}
}

func ReconciliationRequired(r *domain.Reconciliation) Event {
	return Event{Type: TypeReconciliationRequired, SaleID: r.SaleID, OccurredAt: time.Now().UTC(), Payload: r}
}
