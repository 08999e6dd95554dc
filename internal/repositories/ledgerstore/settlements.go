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

const settlementColumns = "id, group_id, paid_by, paid_to, amount, date, created_at"

func scanSettlement(row interface{ Scan(...any) error }) (models.Settlement, error) {
	var st models.Settlement
	err := row.Scan(&st.ID, &st.GroupID, &st.PaidBy, &st.PaidTo, &st.Amount, &st.Date, &st.CreatedAt)
	return st, err
}

func (s *Store) InsertSettlement(ctx context.Context, q sqlconnect.DBTX, st *models.Settlement) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO group_settlements (group_id, paid_by, paid_to, amount, date, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		st.GroupID, st.PaidBy, st.PaidTo, st.Amount.StringFixed(2), st.Date, st.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert settlement id: %w", err)
	}
	st.ID = id
	return nil
}

func (s *Store) GetSettlement(ctx context.Context, q sqlconnect.DBTX, id int64) (models.Settlement, error) {
	st, err := scanSettlement(q.QueryRowContext(ctx, "SELECT "+settlementColumns+" FROM group_settlements WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Settlement{}, utils.NotFound("settlement not found")
	}
	if err != nil {
		return models.Settlement{}, fmt.Errorf("get settlement: %w", err)
	}
	return st, nil
}

func (s *Store) ListSettlements(ctx context.Context, q sqlconnect.DBTX, groupID int64) ([]models.Settlement, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+settlementColumns+" FROM group_settlements WHERE group_id = ? ORDER BY date DESC, id DESC", groupID)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	settlements := []models.Settlement{}
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}
