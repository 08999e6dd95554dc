package ledger

import (
	"context"
	"database/sql"
	"slices"

	"billbuddy/internal/models"
	"billbuddy/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ExpenseInput struct {
	Description string
	Amount      decimal.Decimal
	Date        string
}

// ExpenseUpdate carries the fields to change; nil fields are left alone.
type ExpenseUpdate struct {
	Description *string
	Amount      *decimal.Decimal
	Date        *string
}

// CreateExpense records an expense paid by the caller and splits it equally
// between the group's members as they are at the time of the transaction.
func (s *Service) CreateExpense(ctx context.Context, groupID, callerID int64, in ExpenseInput) (models.ExpenseWithShares, error) {
	desc, err := validateDescription(in.Description)
	if err != nil {
		return models.ExpenseWithShares{}, err
	}
	if err := validateAmount("amount", in.Amount); err != nil {
		return models.ExpenseWithShares{}, err
	}
	date, err := normalizeDate("date", in.Date, s.today())
	if err != nil {
		return models.ExpenseWithShares{}, err
	}

	result := models.ExpenseWithShares{
		Expense: models.Expense{
			GroupID:     groupID,
			Description: desc,
			Amount:      in.Amount,
			PaidBy:      callerID,
			Date:        date,
			CreatedAt:   s.timestamp(),
		},
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.groups.GetGroup(ctx, tx, groupID); err != nil {
			return err
		}

		members, err := s.groups.MemberIDs(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if !slices.Contains(members, callerID) {
			return utils.Denied("you are not a member of this group")
		}

		shares, err := SplitEqually(in.Amount, members, callerID)
		if err != nil {
			return err
		}

		if err := s.store.InsertExpense(ctx, tx, &result.Expense); err != nil {
			return err
		}
		for i := range shares {
			shares[i].ExpenseID = result.ID
			if err := s.store.InsertShare(ctx, tx, &shares[i]); err != nil {
				return err
			}
		}
		result.Shares = shares
		return nil
	})
	s.metrics.LedgerOp("create_expense", err)
	if err != nil {
		return models.ExpenseWithShares{}, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"group_id":   groupID,
		"expense_id": result.ID,
		"paid_by":    callerID,
		"amount":     result.Amount.StringFixed(2),
		"members":    len(result.Shares),
	}).Info("expense created")

	return result, nil
}

// GetExpense is limited to the payer and group admins.
func (s *Service) GetExpense(ctx context.Context, expenseID, callerID int64) (models.Expense, error) {
	e, err := s.store.GetExpense(ctx, s.db, expenseID)
	if err != nil {
		return models.Expense{}, err
	}
	role, err := s.groups.Role(ctx, s.db, e.GroupID, callerID)
	if err != nil {
		return models.Expense{}, err
	}
	if err := canModifyExpense(callerID, role, e); err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

// ListExpenses returns the group's expenses newest first. Non-members get an
// empty list rather than an error.
func (s *Service) ListExpenses(ctx context.Context, groupID, callerID int64) ([]models.Expense, error) {
	if _, err := s.groups.GetGroup(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	role, err := s.groups.Role(ctx, s.db, groupID, callerID)
	if err != nil {
		return nil, err
	}
	if canViewGroup(role) != nil {
		return []models.Expense{}, nil
	}
	return s.store.ListExpenses(ctx, s.db, groupID)
}

func (s *Service) ListShares(ctx context.Context, expenseID, callerID int64) ([]models.ExpenseShare, error) {
	e, err := s.store.GetExpense(ctx, s.db, expenseID)
	if err != nil {
		return nil, err
	}
	role, err := s.groups.Role(ctx, s.db, e.GroupID, callerID)
	if err != nil {
		return nil, err
	}
	if err := canViewGroup(role); err != nil {
		return nil, err
	}
	return s.store.ListShares(ctx, s.db, expenseID)
}

// UpdateExpense changes the description or date. Shares are fixed at creation
// so a different amount is rejected; delete and recreate the expense instead.
func (s *Service) UpdateExpense(ctx context.Context, expenseID, callerID int64, upd ExpenseUpdate) (models.Expense, error) {
	var updated models.Expense
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		e, err := s.store.GetExpense(ctx, tx, expenseID)
		if err != nil {
			return err
		}
		role, err := s.groups.Role(ctx, tx, e.GroupID, callerID)
		if err != nil {
			return err
		}
		if err := canModifyExpense(callerID, role, e); err != nil {
			return err
		}

		if upd.Description != nil {
			if e.Description, err = validateDescription(*upd.Description); err != nil {
				return err
			}
		}
		if upd.Amount != nil {
			if err := validateAmount("amount", *upd.Amount); err != nil {
				return err
			}
			if !upd.Amount.Equal(e.Amount) {
				return utils.Invalid("amount", "cannot be changed after the expense is split; delete and recreate it instead")
			}
		}
		if upd.Date != nil {
			if e.Date, err = normalizeDate("date", *upd.Date, e.Date); err != nil {
				return err
			}
		}

		if err := s.store.UpdateExpense(ctx, tx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	s.metrics.LedgerOp("update_expense", err)
	if err != nil {
		return models.Expense{}, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"group_id":   updated.GroupID,
		"expense_id": updated.ID,
		"user_id":    callerID,
	}).Info("expense updated")
	return updated, nil
}

// DeleteExpense removes the expense together with its shares.
func (s *Service) DeleteExpense(ctx context.Context, expenseID, callerID int64) error {
	var groupID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		e, err := s.store.GetExpense(ctx, tx, expenseID)
		if err != nil {
			return err
		}
		role, err := s.groups.Role(ctx, tx, e.GroupID, callerID)
		if err != nil {
			return err
		}
		if err := canModifyExpense(callerID, role, e); err != nil {
			return err
		}
		groupID = e.GroupID
		return s.store.DeleteExpense(ctx, tx, expenseID)
	})
	s.metrics.LedgerOp("delete_expense", err)
	if err != nil {
		return err
	}

	utils.Logger.WithFields(logrus.Fields{
		"group_id":   groupID,
		"expense_id": expenseID,
		"user_id":    callerID,
	}).Info("expense deleted")
	return nil
}
