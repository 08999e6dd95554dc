package groupstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"billbuddy/internal/models"
	"billbuddy/internal/repositories/sqlconnect"
	"billbuddy/pkg/utils"
)

// Store owns groups and memberships.
type Store struct{}

func New() *Store {
	return &Store{}
}

func (s *Store) CreateGroup(ctx context.Context, q sqlconnect.DBTX, g *models.Group) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO expense_groups (name, description, created_by, created_at) VALUES (?, ?, ?, ?)",
		g.Name, g.Description, g.CreatedBy, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert group id: %w", err)
	}
	g.ID = id
	return nil
}

func (s *Store) GetGroup(ctx context.Context, q sqlconnect.DBTX, id int64) (models.Group, error) {
	var g models.Group
	err := q.QueryRowContext(ctx,
		"SELECT id, name, description, created_by, created_at FROM expense_groups WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, utils.NotFound("group not found")
	}
	if err != nil {
		return models.Group{}, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

// DeleteGroup removes the group and everything it owns.
func (s *Store) DeleteGroup(ctx context.Context, q sqlconnect.DBTX, id int64) error {
	stmts := []string{
		"DELETE FROM group_expense_shares WHERE expense_id IN (SELECT id FROM group_expenses WHERE group_id = ?)",
		"DELETE FROM group_expenses WHERE group_id = ?",
		"DELETE FROM group_settlements WHERE group_id = ?",
		"DELETE FROM group_members WHERE group_id = ?",
	}
	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete group rows: %w", err)
		}
	}

	res, err := q.ExecContext(ctx, "DELETE FROM expense_groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NotFound("group not found")
	}
	return nil
}

func (s *Store) ListGroupIDs(ctx context.Context, q sqlconnect.DBTX) ([]int64, error) {
	return queryIDs(ctx, q, "SELECT id FROM expense_groups ORDER BY id")
}

func (s *Store) ListGroupsForUser(ctx context.Context, q sqlconnect.DBTX, userID int64) ([]models.Group, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT g.id, g.name, g.description, g.created_by, g.created_at
		FROM expense_groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ?
		ORDER BY g.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// AddMember fails with ErrConflict when the user is already in the group.
func (s *Store) AddMember(ctx context.Context, q sqlconnect.DBTX, m *models.GroupMember) error {
	role, err := s.Role(ctx, q, m.GroupID, m.UserID)
	if err != nil {
		return err
	}
	if role != "" {
		return fmt.Errorf("%w: user is already a member of this group", utils.ErrConflict)
	}

	res, err := q.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
		m.GroupID, m.UserID, m.Role, m.JoinedAt)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert member id: %w", err)
	}
	m.ID = id
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, q sqlconnect.DBTX, groupID, userID int64) error {
	res, err := q.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NotFound("membership not found")
	}
	return nil
}

// Role returns the user's role in the group, or "" when not a member.
func (s *Store) Role(ctx context.Context, q sqlconnect.DBTX, groupID, userID int64) (string, error) {
	var role string
	err := q.QueryRowContext(ctx,
		"SELECT role FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get member role: %w", err)
	}
	return role, nil
}

func (s *Store) MemberIDs(ctx context.Context, q sqlconnect.DBTX, groupID int64) ([]int64, error) {
	return queryIDs(ctx, q, "SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id", groupID)
}

func (s *Store) ListMembers(ctx context.Context, q sqlconnect.DBTX, groupID int64) ([]models.GroupMember, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT m.id, m.group_id, m.user_id, u.email, u.first_name, u.last_name, m.role, m.joined_at
		FROM group_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = ?
		ORDER BY m.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.GroupMember{}
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Email, &m.FirstName, &m.LastName, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func queryIDs(ctx context.Context, q sqlconnect.DBTX, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
