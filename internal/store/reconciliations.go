package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medeasy/pos/domain"
)

type reconciliationRow struct {
	ID        string    `db:"id"`
	SaleID    string    `db:"sale_id"`
	Stage     string    `db:"stage"`
	Applied   string    `db:"applied_product_ids"`
	Pending   string    `db:"pending_product_ids"`
	Detail    string    `db:"detail"`
	Resolved  bool      `db:"resolved"`
	CreatedAt time.Time `db:"created_at"`
}

// FlagReconciliation records a partially committed sale for follow-up.
func (s *Store) FlagReconciliation(ctx context.Context, r *domain.Reconciliation) error {
	r.ID = newID()
	r.CreatedAt = s.now()
	row := reconciliationRow{
		ID:        r.ID,
		SaleID:    r.SaleID,
		Stage:     r.Stage,
		Applied:   strings.Join(r.AppliedProductIDs, ","),
		Pending:   strings.Join(r.PendingProductIDs, ","),
		Detail:    r.Detail,
		CreatedAt: r.CreatedAt,
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO sale_reconciliations
		(id, sale_id, stage, applied_product_ids, pending_product_ids, detail, resolved, created_at)
		VALUES (:id, :sale_id, :stage, :applied_product_ids, :pending_product_ids, :detail, :resolved, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to flag sale %s for reconciliation: %w", r.SaleID, err)
	}
	return nil
}

// ListReconciliations returns flags oldest first. Resolved flags are included
// only when all is set.
func (s *Store) ListReconciliations(ctx context.Context, all bool) ([]domain.Reconciliation, error) {
	query := `SELECT id, sale_id, stage, applied_product_ids, pending_product_ids, detail, resolved, created_at FROM sale_reconciliations`
	if !all {
		query += ` WHERE resolved = FALSE`
	}
	query += ` ORDER BY created_at`

	var rows []reconciliationRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}
	out := make([]domain.Reconciliation, len(rows))
	for i, row := range rows {
		out[i] = domain.Reconciliation{
			ID:                row.ID,
			SaleID:            row.SaleID,
			Stage:             row.Stage,
			AppliedProductIDs: splitIDs(row.Applied),
			PendingProductIDs: splitIDs(row.Pending),
			Detail:            row.Detail,
			Resolved:          row.Resolved,
			CreatedAt:         row.CreatedAt,
		}
	}
	return out, nil
}

func (s *Store) ResolveReconciliation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE sale_reconciliations SET resolved = TRUE WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to resolve reconciliation %s: %w", id, err)
	}
	return expectRow(res)
}

func splitIDs(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, ",")
}
