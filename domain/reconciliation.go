package domain

import "time"

// Reconciliation flags a sale whose commit stopped part way through and needs
// manual completion or compensation.
type Reconciliation struct {
	ID                string    `db:"id" json:"id"`
	SaleID            string    `db:"sale_id" json:"sale_id"`
	Stage             string    `db:"stage" json:"stage"`
	AppliedProductIDs []string  `db:"-" json:"applied_product_ids"`
	PendingProductIDs []string  `db:"-" json:"pending_product_ids"`
	Detail            string    `db:"detail" json:"detail"`
	Resolved          bool      `db:"resolved" json:"resolved"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
