package ledger

import (
	"context"
	"database/sql"

	"billbuddy/internal/models"
	"billbuddy/pkg/utils"

	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

type NotificationPage struct {
	Items  []models.Notification `json:"items"`
	Page   int                   `json:"page"`
	Limit  int                   `json:"limit"`
	Unread int                   `json:"unread"`
}

// ListNotifications returns the caller's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, callerID int64, p Page) (NotificationPage, error) {
	p = p.normalize()

	items, err := s.store.ListNotifications(ctx, s.db, callerID, p.Limit, (p.Page-1)*p.Limit)
	if err != nil {
		return NotificationPage{}, err
	}
	unread, err := s.store.CountUnread(ctx, s.db, callerID)
	if err != nil {
		return NotificationPage{}, err
	}
	return NotificationPage{Items: items, Page: p.Page, Limit: p.Limit, Unread: unread}, nil
}

// MarkNotificationRead moves a notification to read. Marking it again is a
// no-op and there is no way back to unread.
func (s *Service) MarkNotificationRead(ctx context.Context, notificationID, callerID int64) (models.Notification, error) {
	var n models.Notification
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if n, err = s.store.GetNotification(ctx, tx, notificationID); err != nil {
			return err
		}
		if err := canReadNotification(callerID, n); err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		if err := s.store.MarkNotificationRead(ctx, tx, n.ID); err != nil {
			return err
		}
		n.IsRead = true
		return nil
	})
	if err != nil {
		return models.Notification{}, err
	}

	utils.Logger.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"user_id":         callerID,
	}).Debug("notification marked read")
	return n, nil
}
