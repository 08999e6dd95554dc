// Package ledger records group expenses and settlements and derives who owes
// whom from them.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"billbuddy/internal/metrics"
	"billbuddy/internal/models"
	"billbuddy/internal/notifier"
	"billbuddy/internal/repositories/ledgerstore"
	"billbuddy/internal/repositories/sqlconnect"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// Store is the persistence the ledger needs. ledgerstore.Store implements it.
type Store interface {
	InsertExpense(ctx context.Context, q sqlconnect.DBTX, e *models.Expense) error
	GetExpense(ctx context.Context, q sqlconnect.DBTX, id int64) (models.Expense, error)
	ListExpenses(ctx context.Context, q sqlconnect.DBTX, groupID int64) ([]models.Expense, error)
	UpdateExpense(ctx context.Context, q sqlconnect.DBTX, e models.Expense) error
	DeleteExpense(ctx context.Context, q sqlconnect.DBTX, id int64) error
	InsertShare(ctx context.Context, q sqlconnect.DBTX, sh *models.ExpenseShare) error
	ListShares(ctx context.Context, q sqlconnect.DBTX, expenseID int64) ([]models.ExpenseShare, error)
	ListGroupShares(ctx context.Context, q sqlconnect.DBTX, groupID int64) ([]ledgerstore.GroupShare, error)

	InsertSettlement(ctx context.Context, q sqlconnect.DBTX, st *models.Settlement) error
	GetSettlement(ctx context.Context, q sqlconnect.DBTX, id int64) (models.Settlement, error)
	ListSettlements(ctx context.Context, q sqlconnect.DBTX, groupID int64) ([]models.Settlement, error)

	InsertNotification(ctx context.Context, q sqlconnect.DBTX, n *models.Notification) error
	GetNotification(ctx context.Context, q sqlconnect.DBTX, id int64) (models.Notification, error)
	ListNotifications(ctx context.Context, q sqlconnect.DBTX, userID int64, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, q sqlconnect.DBTX, userID int64) (int, error)
	MarkNotificationRead(ctx context.Context, q sqlconnect.DBTX, id int64) error
}

// Directory answers group and membership questions. groupstore.Store
// implements it.
type Directory interface {
	GetGroup(ctx context.Context, q sqlconnect.DBTX, id int64) (models.Group, error)
	Role(ctx context.Context, q sqlconnect.DBTX, groupID, userID int64) (string, error)
	MemberIDs(ctx context.Context, q sqlconnect.DBTX, groupID int64) ([]int64, error)
	ListGroupIDs(ctx context.Context, q sqlconnect.DBTX) ([]int64, error)
}

type Users interface {
	GetByID(ctx context.Context, q sqlconnect.DBTX, id int64) (models.User, error)
}

// Notifier queues outbound email without blocking.
type Notifier interface {
	Enqueue(e notifier.Email) error
}

type Service struct {
	db       *sql.DB
	store    Store
	groups   Directory
	users    Users
	notifier Notifier
	metrics  *metrics.Metrics

	selfSettlementOnly bool
	now                func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSelfSettlementOnly makes CreateSettlement reject settlements recorded
// on behalf of another member.
func WithSelfSettlementOnly(enabled bool) Option {
	return func(s *Service) { s.selfSettlementOnly = enabled }
}

func NewService(db *sql.DB, store Store, groups Directory, users Users, n Notifier, opts ...Option) *Service {
	s := &Service{
		db:       db,
		store:    store,
		groups:   groups,
		users:    users,
		notifier: n,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withTx runs fn in a transaction, rolling back on any error.
func (s *Service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

func (s *Service) today() string {
	return s.now().UTC().Format(dateLayout)
}
