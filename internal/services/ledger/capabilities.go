package ledger

import (
	"billbuddy/internal/models"
	"billbuddy/pkg/utils"
)

// canViewGroup passes for any member; role is "" for non-members.
func canViewGroup(role string) error {
	if role == "" {
		return utils.Denied("you are not a member of this group")
	}
	return nil
}

// canModifyExpense passes for the payer or a group admin who is still a
// member.
func canModifyExpense(callerID int64, role string, e models.Expense) error {
	if err := canViewGroup(role); err != nil {
		return err
	}
	if callerID != e.PaidBy && role != models.RoleAdmin {
		return utils.Denied("only the payer or a group admin can do this")
	}
	return nil
}

func canReadNotification(callerID int64, n models.Notification) error {
	if n.UserID != callerID {
		return utils.Denied("this notification belongs to another user")
	}
	return nil
}
