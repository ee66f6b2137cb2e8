// Package seed loads an initial drug catalog from CSV.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"medeasy/pos/domain"
)

// Columns, after a header row:
// name, manufacturer, quantity, purchase_price, selling_price, expiry_date (YYYY-MM-DD, optional), low_stock_threshold (optional)
const minColumns = 5

// LoadDrugsFile seeds the drugs table from the CSV at path.
func LoadDrugsFile(ctx context.Context, db *sqlx.DB, path string, logger *slog.Logger) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("unable to open drug catalog %s: %w", path, err)
	}
	defer file.Close()
	return LoadDrugs(ctx, db, file, logger)
}

// LoadDrugs inserts every row whose name is not already stocked and returns
// how many rows were added. Malformed rows are logged and skipped.
func LoadDrugs(ctx context.Context, db *sqlx.DB, r io.Reader, logger *slog.Logger) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	// Skip header
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("unable to read drug header: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("unable to start drug seed: %w", err)
	}
	defer tx.Rollback()

	var names []string
	if err := tx.SelectContext(ctx, &names, `SELECT LOWER(name) FROM drugs`); err != nil {
		return 0, fmt.Errorf("unable to read stocked drugs: %w", err)
	}
	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO drugs
		(id, name, manufacturer, quantity, purchase_price, selling_price, expiry_date, low_stock_threshold, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("unable to prepare drug insert: %w", err)
	}
	defer stmt.Close()

	rows, line := 0, 1
	now := time.Now().UTC()
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			logger.Warn("unable to read drug row", "line", line, "error", err)
			continue
		}
		d, err := parseDrug(record)
		if err != nil {
			logger.Warn("skipping drug row", "line", line, "error", err)
			continue
		}
		key := strings.ToLower(d.Name)
		if existing[key] {
			continue
		}
		_, err = stmt.ExecContext(ctx, uuid.NewString(), d.Name, d.Manufacturer, d.Quantity, d.PurchasePrice,
			d.SellingPrice, d.ExpiryDate, d.LowStockThreshold, now, now)
		if err != nil {
			return 0, fmt.Errorf("unable to insert drug %s: %w", d.Name, err)
		}
		existing[key] = true
		rows++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("unable to commit drug seed: %w", err)
	}
	logger.Info("seeded drug catalog", "rows", rows)
	return rows, nil
}

func parseDrug(record []string) (domain.Drug, error) {
	if len(record) < minColumns {
		return domain.Drug{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(record))
	}
	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	d := domain.Drug{
		Name:              field(0),
		Manufacturer:      field(1),
		LowStockThreshold: domain.DefaultLowStockThreshold,
	}
	if d.Name == "" {
		return domain.Drug{}, errors.New("name is required")
	}
	qty, err := strconv.ParseInt(field(2), 10, 64)
	if err != nil || qty < 0 {
		return domain.Drug{}, fmt.Errorf("invalid quantity %q", field(2))
	}
	d.Quantity = qty
	if d.PurchasePrice, err = decimal.NewFromString(field(3)); err != nil || d.PurchasePrice.IsNegative() {
		return domain.Drug{}, fmt.Errorf("invalid purchase price %q", field(3))
	}
	if d.SellingPrice, err = decimal.NewFromString(field(4)); err != nil || d.SellingPrice.IsNegative() {
		return domain.Drug{}, fmt.Errorf("invalid selling price %q", field(4))
	}
	if v := field(5); v != "" {
		expiry, err := time.Parse("2006-01-02", v)
		if err != nil {
			return domain.Drug{}, fmt.Errorf("invalid expiry date %q", v)
		}
		d.ExpiryDate = &expiry
	}
	if v := field(6); v != "" {
		threshold, err := strconv.ParseInt(v, 10, 64)
		if err != nil || threshold < 0 {
			return domain.Drug{}, fmt.Errorf("invalid low stock threshold %q", v)
		}
		d.LowStockThreshold = threshold
	}
	return d, nil
}
