package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medeasy/pos/domain"
)

// CreateUser inserts a user with a hashed password. The first user ever
// registered is made admin, everyone after that starts as staff.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || u.Password == "" || strings.TrimSpace(u.FullName) == "" {
		return fmt.Errorf("%w: email, password and full name are required", ErrInvalid)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start registration: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM users`); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	role := domain.RoleStaff
	if existing == 0 {
		role = domain.RoleAdmin
	}

	u.ID = newID()
	u.CreatedAt = s.now()
	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO users (id, email, full_name, password, created_at) VALUES (?, ?, ?, ?, ?)`),
		u.ID, u.Email, u.FullName, u.Password, u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email %s", ErrDuplicate, u.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`), u.ID, role); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to complete registration: %w", err)
	}
	u.Roles = []domain.Role{role}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.loadUser(ctx, `SELECT id, email, full_name, password, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.loadUser(ctx, `SELECT id, email, full_name, password, created_at FROM users WHERE id = ?`, id)
}

func (s *Store) loadUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, s.q(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	roles, err := s.Roles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

// Roles is the role lookup for a user.
func (s *Store) Roles(ctx context.Context, userID string) ([]domain.Role, error) {
	roles := []domain.Role{}
	err := s.db.SelectContext(ctx, &roles, s.q(`SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	return roles, nil
}

// SetRoles replaces the roles held by a user.
func (s *Store) SetRoles(ctx context.Context, userID string, roles []domain.Role) error {
	if len(roles) == 0 {
		return fmt.Errorf("%w: at least one role is required", ErrInvalid)
	}
	for _, r := range roles {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown role %q", ErrInvalid, r)
		}
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start role update: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`), userID); err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM user_roles WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("failed to clear roles: %w", err)
	}
	for _, r := range dedupeRoles(roles) {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO user_roles (user_id, role) VALUES (?, ?)`), userID, r); err != nil {
			return fmt.Errorf("failed to assign role %s: %w", r, err)
		}
	}
	return tx.Commit()
}

func dedupeRoles(roles []domain.Role) []domain.Role {
	seen := make(map[domain.Role]bool, len(roles))
	out := make([]domain.Role, 0, len(roles))
	for _, r := range roles {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
