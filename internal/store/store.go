// Package store is the sqlx-backed record store: typed access to the drugs,
// sales, sale_items, suppliers, users, assessments and sale_reconciliations
// collections.
//
// It exposes no multi-statement transactions to the point-of-sale pipeline.
// Stock decrements are conditional updates evaluated by the database, so a
// decrement can fail but can never take a stock level below zero.
package store

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalid           = errors.New("invalid record")
)

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) q(query string) string { return s.db.Rebind(query) }

func newID() string { return uuid.NewString() }

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
