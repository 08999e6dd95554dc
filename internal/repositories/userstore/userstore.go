package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"billbuddy/internal/models"
	"billbuddy/internal/repositories/sqlconnect"
	"billbuddy/pkg/utils"
)

type Store struct{}

func New() *Store {
	return &Store{}
}

const userColumns = "id, email, first_name, last_name, password, is_active, password_changed_at, created_at"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Password, &u.IsActive, &u.PasswordChangedAt, &u.CreatedAt)
	return u, err
}

// Create inserts u. Emails are compared case-insensitively and a duplicate
// fails with ErrConflict.
func (s *Store) Create(ctx context.Context, q sqlconnect.DBTX, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	var exists bool
	if err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", u.Email).Scan(&exists); err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: email already registered", utils.ErrConflict)
	}

	res, err := q.ExecContext(ctx,
		"INSERT INTO users (email, first_name, last_name, password, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		u.Email, u.FirstName, u.LastName, u.Password, u.IsActive, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert user id: %w", err)
	}
	u.ID = id
	return nil
}

func (s *Store) GetByID(ctx context.Context, q sqlconnect.DBTX, id int64) (models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, utils.NotFound("user not found")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, q sqlconnect.DBTX, email string) (models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, utils.NotFound("user not found")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) Activate(ctx context.Context, q sqlconnect.DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, "UPDATE users SET is_active = ? WHERE id = ?", true, id); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, q sqlconnect.DBTX, id int64, hash, changedAt string) error {
	if _, err := q.ExecContext(ctx,
		"UPDATE users SET password = ?, password_changed_at = ? WHERE id = ?", hash, changedAt, id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
