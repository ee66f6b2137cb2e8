package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medeasy/pos/domain"
)

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	suppliers := []domain.Supplier{}
	err := s.db.SelectContext(ctx, &suppliers,
		`SELECT id, name, contact_person, email, phone, created_at, updated_at FROM suppliers ORDER BY LOWER(name), name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return suppliers, nil
}

func (s *Store) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	var sup domain.Supplier
	err := s.db.GetContext(ctx, &sup,
		s.q(`SELECT id, name, contact_person, email, phone, created_at, updated_at FROM suppliers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier %s: %w", id, err)
	}
	return &sup, nil
}

func (s *Store) CreateSupplier(ctx context.Context, sup *domain.Supplier) error {
	if err := validateSupplier(sup); err != nil {
		return err
	}
	sup.ID = newID()
	sup.CreatedAt = s.now()
	sup.UpdatedAt = sup.CreatedAt
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO suppliers (id, name, contact_person, email, phone, created_at, updated_at)
		VALUES (:id, :name, :contact_person, :email, :phone, :created_at, :updated_at)`, sup)
	if err != nil {
		return fmt.Errorf("failed to create supplier: %w", err)
	}
	return nil
}

func (s *Store) UpdateSupplier(ctx context.Context, sup *domain.Supplier) error {
	if err := validateSupplier(sup); err != nil {
		return err
	}
	sup.UpdatedAt = s.now()
	res, err := s.db.NamedExecContext(ctx, `UPDATE suppliers SET name = :name, contact_person = :contact_person,
		email = :email, phone = :phone, updated_at = :updated_at WHERE id = :id`, sup)
	if err != nil {
		return fmt.Errorf("failed to update supplier %s: %w", sup.ID, err)
	}
	return expectRow(res)
}

func (s *Store) DeleteSupplier(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM suppliers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete supplier %s: %w", id, err)
	}
	return expectRow(res)
}

func validateSupplier(sup *domain.Supplier) error {
	if strings.TrimSpace(sup.Name) == "" || strings.TrimSpace(sup.Email) == "" {
		return fmt.Errorf("%w: name and email are required", ErrInvalid)
	}
	return nil
}
