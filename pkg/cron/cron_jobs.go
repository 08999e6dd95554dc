package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"billbuddy/internal/models"
	"billbuddy/internal/notifier"
	"billbuddy/pkg/utils"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const reminderTimeout = 5 * time.Minute

// Ledger is the read side the reminder job needs.
type Ledger interface {
	ListGroupIDs(ctx context.Context) ([]int64, error)
	Group(ctx context.Context, groupID int64) (models.Group, error)
	GroupBalances(ctx context.Context, groupID int64) (models.GroupBalances, error)
	User(ctx context.Context, userID int64) (models.User, error)
}

type Notifier interface {
	Enqueue(e notifier.Email) error
}

// Reminder emails every debtor once per outstanding pairwise balance.
type Reminder struct {
	ledger   Ledger
	notifier Notifier
	workers  int
	now      func() time.Time
}

func NewReminder(l Ledger, n Notifier, workers int) *Reminder {
	if workers < 1 {
		workers = 1
	}
	return &Reminder{ledger: l, notifier: n, workers: workers, now: time.Now}
}

// StartCronJob schedules the debtor reminders on a standard five-field cron
// expression and starts the scheduler.
func StartCronJob(schedule string, r *Reminder) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reminderTimeout)
		defer cancel()

		if _, err := r.SendReminders(ctx); err != nil {
			utils.Logger.Errorf("Cron job failed to send reminder emails: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule debtor reminders %q: %w", schedule, err)
	}

	c.Start()
	utils.Logger.WithField("schedule", schedule).Info("Cron jobs started")
	return c, nil
}

// SendReminders walks every group concurrently and queues one reminder per
// debtor and creditor pair. A failing group does not stop the others; the
// returned error joins every failure.
func (r *Reminder) SendReminders(ctx context.Context) (int, error) {
	groupIDs, err := r.ledger.ListGroupIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list groups: %w", err)
	}

	var (
		mu     sync.Mutex
		sent   int
		failed []error
	)
	record := func(n int, errs ...error) {
		mu.Lock()
		defer mu.Unlock()
		sent += n
		failed = append(failed, errs...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, groupID := range groupIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, errs := r.remindGroup(gctx, groupID)
			record(n, errs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		failed = append(failed, err)
	}

	utils.Logger.WithFields(logrus.Fields{
		"groups":    len(groupIDs),
		"reminders": sent,
		"failures":  len(failed),
	}).Info("Finished queueing debtor reminder emails")
	return sent, errors.Join(failed...)
}

func (r *Reminder) remindGroup(ctx context.Context, groupID int64) (int, []error) {
	group, err := r.ledger.Group(ctx, groupID)
	if err != nil {
		return 0, []error{fmt.Errorf("group %d: %w", groupID, err)}
	}
	balances, err := r.ledger.GroupBalances(ctx, groupID)
	if err != nil {
		return 0, []error{fmt.Errorf("group %d balances: %w", groupID, err)}
	}

	users := map[int64]models.User{}
	lookup := func(id int64) (models.User, error) {
		if u, ok := users[id]; ok {
			return u, nil
		}
		u, err := r.ledger.User(ctx, id)
		if err != nil {
			return models.User{}, err
		}
		users[id] = u
		return u, nil
	}

	var (
		sent int
		errs []error
	)
	for _, b := range balances.Balances {
		if !b.Amount.IsPositive() {
			continue
		}
		debtor, err := lookup(b.Debtor)
		if err != nil {
			errs = append(errs, fmt.Errorf("group %d debtor %d: %w", groupID, b.Debtor, err))
			continue
		}
		creditor, err := lookup(b.Creditor)
		if err != nil {
			errs = append(errs, fmt.Errorf("group %d creditor %d: %w", groupID, b.Creditor, err))
			continue
		}

		subject, body := utils.DebtorReminderEmail(debtor.DisplayName(), b.Amount.StringFixed(2), group.Name, creditor.Email, r.now())
		err = r.notifier.Enqueue(notifier.Email{
			Kind:     notifier.KindDebtorReminder,
			To:       debtor.Email,
			Subject:  subject,
			HTMLBody: body,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("queue reminder for %s: %w", debtor.Email, err))
			continue
		}
		sent++
	}
	return sent, errs
}
