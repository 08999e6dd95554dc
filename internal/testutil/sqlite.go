// Package testutil builds migrated SQLite databases for package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"billbuddy/internal/config"
	"billbuddy/internal/models"
	"billbuddy/internal/repositories/groupstore"
	"billbuddy/internal/repositories/sqlconnect"
	"billbuddy/internal/repositories/userstore"
	"billbuddy/pkg/utils"
)

const timestampLayout = "2006-01-02 15:04:05"

// NewDB returns a migrated SQLite database in t's temp dir.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	utils.SilenceLogger()

	cfg := config.DBConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "billbuddy.db")}
	if err := sqlconnect.RunMigrations(cfg); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	db, err := sqlconnect.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// CreateUser inserts an active user named after email.
func CreateUser(t testing.TB, db *sql.DB, email string) int64 {
	t.Helper()
	u := models.User{
		Email:     email,
		FirstName: email,
		Password:  "x",
		IsActive:  true,
		CreatedAt: time.Now().UTC().Format(timestampLayout),
	}
	if err := userstore.New().Create(context.Background(), db, &u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u.ID
}

// CreateGroup makes a group with admin as its admin and members as plain
// members.
func CreateGroup(t testing.TB, db *sql.DB, name string, admin int64, members ...int64) int64 {
	t.Helper()
	ctx := context.Background()
	store := groupstore.New()
	now := time.Now().UTC().Format(timestampLayout)

	g := models.Group{Name: name, CreatedBy: admin, CreatedAt: now}
	if err := store.CreateGroup(ctx, db, &g); err != nil {
		t.Fatalf("create group: %v", err)
	}

	add := func(userID int64, role string) {
		m := models.GroupMember{GroupID: g.ID, UserID: userID, Role: role, JoinedAt: now}
		if err := store.AddMember(ctx, db, &m); err != nil {
			t.Fatalf("add member %d: %v", userID, err)
		}
	}
	add(admin, models.RoleAdmin)
	for _, id := range members {
		add(id, models.RoleMember)
	}
	return g.ID
}

// CountRows returns the number of rows in table matching where.
func CountRows(t testing.TB, db *sql.DB, table, where string, args ...any) int {
	t.Helper()
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if where != "" {
		query += " WHERE " + where
	}
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
