package ledgerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"billbuddy/internal/models"
	"billbuddy/internal/repositories/sqlconnect"
	"billbuddy/pkg/utils"
)

// Store holds the SQL for expenses, shares, settlements and notifications.
// Every method takes the connection or transaction to run on.
type Store struct{}

func New() *Store {
	return &Store{}
}

const expenseColumns = "id, group_id, description, amount, paid_by, date, created_at"

func scanExpense(row interface{ Scan(...any) error }) (models.Expense, error) {
	var e models.Expense
	err := row.Scan(&e.ID, &e.GroupID, &e.Description, &e.Amount, &e.PaidBy, &e.Date, &e.CreatedAt)
	return e, err
}

func (s *Store) InsertExpense(ctx context.Context, q sqlconnect.DBTX, e *models.Expense) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO group_expenses (group_id, description, amount, paid_by, date, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.GroupID, e.Description, e.Amount.StringFixed(2), e.PaidBy, e.Date, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert expense id: %w", err)
	}
	e.ID = id
	return nil
}

func (s *Store) GetExpense(ctx context.Context, q sqlconnect.DBTX, id int64) (models.Expense, error) {
	e, err := scanExpense(q.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM group_expenses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Expense{}, utils.NotFound("expense not found")
	}
	if err != nil {
		return models.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListExpenses returns a group's expenses, newest date first.
func (s *Store) ListExpenses(ctx context.Context, q sqlconnect.DBTX, groupID int64) ([]models.Expense, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+expenseColumns+" FROM group_expenses WHERE group_id = ? ORDER BY date DESC, id DESC", groupID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) UpdateExpense(ctx context.Context, q sqlconnect.DBTX, e models.Expense) error {
	_, err := q.ExecContext(ctx,
		"UPDATE group_expenses SET description = ?, date = ? WHERE id = ?",
		e.Description, e.Date, e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

// DeleteExpense removes the expense and its shares. The foreign key cascades
// too, but the shares are deleted explicitly so the result does not depend on
// the connection's foreign key setting.
func (s *Store) DeleteExpense(ctx context.Context, q sqlconnect.DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM group_expense_shares WHERE expense_id = ?", id); err != nil {
		return fmt.Errorf("delete shares: %w", err)
	}
	res, err := q.ExecContext(ctx, "DELETE FROM group_expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NotFound("expense not found")
	}
	return nil
}

func (s *Store) InsertShare(ctx context.Context, q sqlconnect.DBTX, sh *models.ExpenseShare) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO group_expense_shares (expense_id, user_id, amount) VALUES (?, ?, ?)",
		sh.ExpenseID, sh.UserID, sh.Amount.StringFixed(2))
	if err != nil {
		return fmt.Errorf("insert share: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert share id: %w", err)
	}
	sh.ID = id
	return nil
}

func (s *Store) ListShares(ctx context.Context, q sqlconnect.DBTX, expenseID int64) ([]models.ExpenseShare, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, expense_id, user_id, amount FROM group_expense_shares WHERE expense_id = ? ORDER BY id", expenseID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	shares := []models.ExpenseShare{}
	for rows.Next() {
		var sh models.ExpenseShare
		if err := rows.Scan(&sh.ID, &sh.ExpenseID, &sh.UserID, &sh.Amount); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

// GroupShare is a share joined with the payer of its expense.
type GroupShare struct {
	models.ExpenseShare
	PaidBy int64
}

func (s *Store) ListGroupShares(ctx context.Context, q sqlconnect.DBTX, groupID int64) ([]GroupShare, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT s.id, s.expense_id, s.user_id, s.amount, e.paid_by
		FROM group_expense_shares s
		JOIN group_expenses e ON e.id = s.expense_id
		WHERE e.group_id = ?
		ORDER BY s.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group shares: %w", err)
	}
	defer rows.Close()

	var shares []GroupShare
	for rows.Next() {
		var gs GroupShare
		if err := rows.Scan(&gs.ID, &gs.ExpenseID, &gs.UserID, &gs.Amount, &gs.PaidBy); err != nil {
			return nil, fmt.Errorf("scan group share: %w", err)
		}
		shares = append(shares, gs)
	}
	return shares, rows.Err()
}
