package models

import "database/sql"

type User struct {
	ID                int64          `json:"id" db:"id"`
	Email             string         `json:"email" db:"email"`
	FirstName         string         `json:"first_name" db:"first_name"`
	LastName          string         `json:"last_name" db:"last_name"`
	Password          string         `json:"-" db:"password"`
	IsActive          bool           `json:"is_active" db:"is_active"`
	PasswordChangedAt sql.NullString `json:"-" db:"password_changed_at"`
	CreatedAt         string         `json:"created_at" db:"created_at"`
}

func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}
