package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"billbuddy/internal/models"
	"billbuddy/internal/notifier"
	"billbuddy/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SettlementInput describes a payment. PaidBy defaults to the caller.
type SettlementInput struct {
	PaidBy int64
	PaidTo int64
	Amount decimal.Decimal
	Date   string
}

// SettlementResult carries non-fatal problems, keyed by source, alongside the
// committed settlement.
type SettlementResult struct {
	Settlement models.Settlement
	Warnings   map[string]string
}

// CreateSettlement records that PaidBy paid PaidTo and notifies the payee.
// The settlement and the in-app notification commit together; the email is
// queued afterwards and a failure to queue it only produces a warning.
func (s *Service) CreateSettlement(ctx context.Context, groupID, callerID int64, in SettlementInput) (SettlementResult, error) {
	if in.PaidBy == 0 {
		in.PaidBy = callerID
	}
	if in.PaidTo <= 0 {
		return SettlementResult{}, utils.Invalid("paid_to", "is required")
	}
	if in.PaidBy == in.PaidTo {
		return SettlementResult{}, utils.Invalid("paid_to", "cannot be the same user as paid_by")
	}
	if err := validateAmount("amount", in.Amount); err != nil {
		return SettlementResult{}, err
	}
	date, err := normalizeDate("date", in.Date, s.today())
	if err != nil {
		return SettlementResult{}, err
	}
	if s.selfSettlementOnly && in.PaidBy != callerID {
		return SettlementResult{}, utils.Denied("you can only record settlements you paid")
	}

	st := models.Settlement{
		GroupID:   groupID,
		PaidBy:    in.PaidBy,
		PaidTo:    in.PaidTo,
		Amount:    in.Amount,
		Date:      date,
		CreatedAt: s.timestamp(),
	}
	var (
		group models.Group
		payer models.User
		payee models.User
	)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if group, err = s.groups.GetGroup(ctx, tx, groupID); err != nil {
			return err
		}

		role, err := s.groups.Role(ctx, tx, groupID, callerID)
		if err != nil {
			return err
		}
		if err := canViewGroup(role); err != nil {
			return err
		}
		for _, party := range []struct {
			field string
			id    int64
		}{{"paid_by", st.PaidBy}, {"paid_to", st.PaidTo}} {
			r, err := s.groups.Role(ctx, tx, groupID, party.id)
			if err != nil {
				return err
			}
			if r == "" {
				return utils.Invalid(party.field, "must be a member of this group")
			}
		}

		if payer, err = s.users.GetByID(ctx, tx, st.PaidBy); err != nil {
			return err
		}
		if payee, err = s.users.GetByID(ctx, tx, st.PaidTo); err != nil {
			return err
		}

		if err := s.store.InsertSettlement(ctx, tx, &st); err != nil {
			return err
		}
		return s.store.InsertNotification(ctx, tx, &models.Notification{
			UserID:    st.PaidTo,
			Message:   settlementMessage(payer.Email, st.Amount, group.Name),
			CreatedAt: st.CreatedAt,
		})
	})
	s.metrics.LedgerOp("create_settlement", err)
	if err != nil {
		return SettlementResult{}, err
	}

	log := utils.Logger.WithFields(logrus.Fields{
		"group_id":      groupID,
		"settlement_id": st.ID,
		"paid_by":       st.PaidBy,
		"paid_to":       st.PaidTo,
		"recorded_by":   callerID,
		"amount":        st.Amount.StringFixed(2),
	})
	log.Info("settlement created")

	result := SettlementResult{Settlement: st}
	if err := s.notifySettlement(st, payer, payee, group); err != nil {
		log.WithError(err).Warn("settlement email not queued")
		result.Warnings = map[string]string{"notifier": "payment email could not be queued"}
	}
	return result, nil
}

func settlementMessage(payerEmail string, amount decimal.Decimal, groupName string) string {
	return fmt.Sprintf("%s paid you %s in group '%s'", payerEmail, amount.StringFixed(2), groupName)
}

func (s *Service) notifySettlement(st models.Settlement, payer, payee models.User, group models.Group) error {
	if s.notifier == nil {
		return nil
	}
	subject, body := utils.SettlementReceivedEmail(payer.Email, st.Amount.StringFixed(2), group.Name, st.Date, s.now())
	return s.notifier.Enqueue(notifier.Email{
		Kind:     notifier.KindSettlementReceived,
		To:       payee.Email,
		Subject:  subject,
		HTMLBody: body,
	})
}

func (s *Service) GetSettlement(ctx context.Context, settlementID, callerID int64) (models.Settlement, error) {
	st, err := s.store.GetSettlement(ctx, s.db, settlementID)
	if err != nil {
		return models.Settlement{}, err
	}
	role, err := s.groups.Role(ctx, s.db, st.GroupID, callerID)
	if err != nil {
		return models.Settlement{}, err
	}
	if err := canViewGroup(role); err != nil {
		return models.Settlement{}, err
	}
	return st, nil
}

// ListSettlements returns an empty list to non-members.
func (s *Service) ListSettlements(ctx context.Context, groupID, callerID int64) ([]models.Settlement, error) {
	if _, err := s.groups.GetGroup(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	role, err := s.groups.Role(ctx, s.db, groupID, callerID)
	if err != nil {
		return nil, err
	}
	if canViewGroup(role) != nil {
		return []models.Settlement{}, nil
	}
	return s.store.ListSettlements(ctx, s.db, groupID)
}
