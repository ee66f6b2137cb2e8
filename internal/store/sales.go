package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"medeasy/pos/domain"
)

// InsertSale writes a sale header, assigning its id when empty.
func (s *Store) InsertSale(ctx context.Context, sale *domain.Sale) error {
	if sale.ID == "" {
		sale.ID = newID()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = s.now()
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO sales (id, created_at, user_id, payment_method, total_amount)
		VALUES (:id, :created_at, :user_id, :payment_method, :total_amount)`, sale)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

// InsertSaleLines writes all lines in a single statement so the batch lands
// together or not at all.
func (s *Store) InsertSaleLines(ctx context.Context, lines []domain.SaleLine) error {
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		if lines[i].ID == "" {
			lines[i].ID = newID()
		}
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO sale_items (id, sale_id, drug_id, quantity, unit_price, subtotal)
		VALUES (:id, :sale_id, :drug_id, :quantity, :unit_price, :subtotal)`, lines)
	if err != nil {
		return fmt.Errorf("failed to insert sale lines: %w", err)
	}
	return nil
}

type SaleFilter struct {
	From   *time.Time
	To     *time.Time // exclusive
	UserID string
}

// ListSales returns sale headers newest first.
func (s *Store) ListSales(ctx context.Context, f SaleFilter) ([]domain.Sale, error) {
	var (
		clauses []string
		args    []any
	)
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, f.To.UTC())
	}
	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}
	query := `SELECT id, created_at, user_id, payment_method, total_amount FROM sales`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	sales := []domain.Sale{}
	if err := s.db.SelectContext(ctx, &sales, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

// GetSale returns a sale with its lines.
func (s *Store) GetSale(ctx context.Context, id string) (*domain.Sale, error) {
	var sale domain.Sale
	err := s.db.GetContext(ctx, &sale,
		s.q(`SELECT id, created_at, user_id, payment_method, total_amount FROM sales WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale %s: %w", id, err)
	}
	lines, err := s.SaleLines(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	sale.Lines = lines
	return &sale, nil
}

// SaleLines returns the lines of the given sales.
func (s *Store) SaleLines(ctx context.Context, saleIDs []string) ([]domain.SaleLine, error) {
	lines := []domain.SaleLine{}
	if len(saleIDs) == 0 {
		return lines, nil
	}
	query, args, err := sqlx.In(`SELECT id, sale_id, drug_id, quantity, unit_price, subtotal
		FROM sale_items WHERE sale_id IN (?) ORDER BY sale_id, id`, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare sale items query: %w", err)
	}
	if err := s.db.SelectContext(ctx, &lines, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	return lines, nil
}
