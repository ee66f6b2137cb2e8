package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"medeasy/pos/domain"
)

const drugColumns = `id, name, manufacturer, quantity, purchase_price, selling_price, expiry_date, low_stock_threshold, supplier_id, created_at, updated_at`

// ListDrugs returns every drug ordered by name, optionally filtered by a
// case-insensitive match on name or manufacturer.
func (s *Store) ListDrugs(ctx context.Context, query string) ([]domain.Drug, error) {
	sqlQuery := `SELECT ` + drugColumns + ` FROM drugs`
	var args []any
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		sqlQuery += ` WHERE LOWER(name) LIKE ? OR LOWER(manufacturer) LIKE ?`
		args = append(args, like, like)
	}
	sqlQuery += ` ORDER BY LOWER(name), name`

	drugs := []domain.Drug{}
	if err := s.db.SelectContext(ctx, &drugs, s.q(sqlQuery), args...); err != nil {
		return nil, fmt.Errorf("failed to list drugs: %w", err)
	}
	return drugs, nil
}

func (s *Store) GetDrug(ctx context.Context, id string) (*domain.Drug, error) {
	var d domain.Drug
	err := s.db.GetContext(ctx, &d, s.q(`SELECT `+drugColumns+` FROM drugs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load drug %s: %w", id, err)
	}
	return &d, nil
}

func (s *Store) CreateDrug(ctx context.Context, d *domain.Drug) error {
	if err := validateDrug(d); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = newID()
	}
	d.CreatedAt = s.now()
	d.UpdatedAt = d.CreatedAt
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO drugs (`+drugColumns+`)
		VALUES (:id, :name, :manufacturer, :quantity, :purchase_price, :selling_price, :expiry_date, :low_stock_threshold, :supplier_id, :created_at, :updated_at)`, d)
	if err != nil {
		return fmt.Errorf("failed to create drug: %w", err)
	}
	return nil
}

func (s *Store) UpdateDrug(ctx context.Context, d *domain.Drug) error {
	if err := validateDrug(d); err != nil {
		return err
	}
	d.UpdatedAt = s.now()
	res, err := s.db.NamedExecContext(ctx, `UPDATE drugs SET name = :name, manufacturer = :manufacturer, quantity = :quantity,
		purchase_price = :purchase_price, selling_price = :selling_price, expiry_date = :expiry_date,
		low_stock_threshold = :low_stock_threshold, supplier_id = :supplier_id, updated_at = :updated_at
		WHERE id = :id`, d)
	if err != nil {
		return fmt.Errorf("failed to update drug %s: %w", d.ID, err)
	}
	return expectRow(res)
}

func (s *Store) DeleteDrug(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM drugs WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete drug %s: %w", id, err)
	}
	return expectRow(res)
}

// ListSellable returns in-stock drugs ordered by name.
func (s *Store) ListSellable(ctx context.Context) ([]domain.CatalogItem, error) {
	items := []domain.CatalogItem{}
	err := s.db.SelectContext(ctx, &items,
		`SELECT id, name, manufacturer, selling_price, quantity FROM drugs WHERE quantity > 0 ORDER BY LOWER(name), name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sellable drugs: %w", err)
	}
	return items, nil
}

// StockLevels returns the current quantity of each known product. Unknown ids
// are omitted.
func (s *Store) StockLevels(ctx context.Context, productIDs []string) (map[string]int64, error) {
	levels := make(map[string]int64, len(productIDs))
	if len(productIDs) == 0 {
		return levels, nil
	}
	query, args, err := sqlx.In(`SELECT id, quantity FROM drugs WHERE id IN (?)`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare stock query: %w", err)
	}
	var rows []struct {
		ID       string `db:"id"`
		Quantity int64  `db:"quantity"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to read stock levels: %w", err)
	}
	for _, r := range rows {
		levels[r.ID] = r.Quantity
	}
	return levels, nil
}

// DecrementStock subtracts quantity only if at least that much is in stock.
func (s *Store) DecrementStock(ctx context.Context, productID string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: decrement of %d", ErrInvalid, quantity)
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE drugs SET quantity = quantity - ?, updated_at = ? WHERE id = ? AND quantity >= ?`),
		quantity, s.now(), productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrement stock for %s: %w", productID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to decrement stock for %s: %w", productID, err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetDrug(ctx, productID); err != nil {
		return err
	}
	return fmt.Errorf("%w for %s", ErrInsufficientStock, productID)
}

func validateDrug(d *domain.Drug) error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case d.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalid)
	case d.PurchasePrice.IsNegative() || d.SellingPrice.IsNegative():
		return fmt.Errorf("%w: prices must not be negative", ErrInvalid)
	case d.LowStockThreshold < 0:
		return fmt.Errorf("%w: low stock threshold must not be negative", ErrInvalid)
	}
	return nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
