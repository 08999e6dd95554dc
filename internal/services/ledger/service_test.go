package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"billbuddy/internal/models"
	"billbuddy/internal/notifier"
	"billbuddy/internal/repositories/groupstore"
	"billbuddy/internal/repositories/ledgerstore"
	"billbuddy/internal/repositories/sqlconnect"
	"billbuddy/internal/repositories/userstore"
	"billbuddy/internal/testutil"
	"billbuddy/pkg/utils"

	"github.com/shopspring/decimal"
)

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []notifier.Email
}

func (f *fakeNotifier) Enqueue(e notifier.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

// failingShareStore fails the second share insert of every expense.
type failingShareStore struct {
	*ledgerstore.Store
	calls int
}

func (s *failingShareStore) InsertShare(ctx context.Context, q sqlconnect.DBTX, sh *models.ExpenseShare) error {
	s.calls++
	if s.calls == 2 {
		return errors.New("disk full")
	}
	return s.Store.InsertShare(ctx, q, sh)
}

// failingNotificationStore fails every notification insert.
type failingNotificationStore struct {
	*ledgerstore.Store
}

func (s *failingNotificationStore) InsertNotification(context.Context, sqlconnect.DBTX, *models.Notification) error {
	return errors.New("notifications table locked")
}

type fixture struct {
	db       *sql.DB
	svc      *Service
	notifier *fakeNotifier
	a, b, c  int64
	outsider int64
	group    int64
}

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	f := &fixture{db: db, notifier: &fakeNotifier{}}
	f.a = testutil.CreateUser(t, db, "a@example.com")
	f.b = testutil.CreateUser(t, db, "b@example.com")
	f.c = testutil.CreateUser(t, db, "c@example.com")
	f.outsider = testutil.CreateUser(t, db, "z@example.com")
	f.group = testutil.CreateGroup(t, db, "Flat", f.a, f.b, f.c)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.svc = NewService(db, ledgerstore.New(), groupstore.New(), userstore.New(), f.notifier, opts...)
	return f
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestCreateExpenseSplitsAcrossMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.CreateExpense(ctx, f.group, f.b, ExpenseInput{Description: " Groceries ", Amount: amount("10.01")})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if got.Description != "Groceries" || got.PaidBy != f.b || got.Date != "2025-03-01" {
		t.Fatalf("expense = %+v", got.Expense)
	}

	shares, err := f.svc.ListShares(ctx, got.ID, f.c)
	if err != nil {
		t.Fatalf("ListShares: %v", err)
	}
	if len(shares) != 3 {
		t.Fatalf("got %d shares, want 3", len(shares))
	}
	sum := decimal.Zero
	for _, sh := range shares {
		sum = sum.Add(sh.Amount)
		if sh.UserID == f.b && !sh.Amount.Equal(amount("3.35")) {
			t.Errorf("payer share = %s, want 3.35", sh.Amount)
		}
	}
	if !sum.Equal(amount("10.01")) {
		t.Fatalf("shares sum to %s, want 10.01", sum)
	}
}

func TestCreateExpenseRequiresMembership(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateExpense(context.Background(), f.group, f.outsider, ExpenseInput{Description: "x", Amount: amount("5")})
	if !errors.Is(err, utils.ErrPermissionDenied) {
		t.Fatalf("err = %v, want permission denied", err)
	}
	if n := testutil.CountRows(t, f.db, "group_expenses", ""); n != 0 {
		t.Fatalf("%d expenses persisted, want 0", n)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input ExpenseInput
		field string
	}{
		{"zero amount", ExpenseInput{Description: "x", Amount: decimal.Zero}, "amount"},
		{"negative amount", ExpenseInput{Description: "x", Amount: amount("-1")}, "amount"},
		{"three decimals", ExpenseInput{Description: "x", Amount: amount("1.234")}, "amount"},
		{"missing description", ExpenseInput{Description: "  ", Amount: amount("1")}, "description"},
		{"bad date", ExpenseInput{Description: "x", Amount: amount("1"), Date: "yesterday"}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateExpense(context.Background(), f.group, f.a, tt.input)
			var verr *utils.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Fatalf("fields = %v, want %s", verr.Fields, tt.field)
			}
		})
	}
}

func TestCreateExpenseUnknownGroup(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateExpense(context.Background(), 9999, f.a, ExpenseInput{Description: "x", Amount: amount("1")})
	if !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreateExpenseRollsBackOnShareFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, &failingShareStore{Store: ledgerstore.New()}, groupstore.New(), userstore.New(), f.notifier)

	_, err := svc.CreateExpense(context.Background(), f.group, f.a, ExpenseInput{Description: "Dinner", Amount: amount("90")})
	if err == nil {
		t.Fatal("expected error from failing share insert")
	}
	if n := testutil.CountRows(t, f.db, "group_expenses", ""); n != 0 {
		t.Fatalf("%d expenses persisted after rollback", n)
	}
	if n := testutil.CountRows(t, f.db, "group_expense_shares", ""); n != 0 {
		t.Fatalf("%d shares persisted after rollback", n)
	}
}

func TestCreateSettlementRollsBackOnNotificationFailure(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.db, &failingNotificationStore{Store: ledgerstore.New()}, groupstore.New(), userstore.New(), f.notifier)

	_, err := svc.CreateSettlement(context.Background(), f.group, f.b, SettlementInput{PaidTo: f.a, Amount: amount("30")})
	if err == nil {
		t.Fatal("expected error from failing notification insert")
	}
	if n := testutil.CountRows(t, f.db, "group_settlements", ""); n != 0 {
		t.Fatalf("%d settlements persisted after rollback", n)
	}
	if n := testutil.CountRows(t, f.db, "notifications", ""); n != 0 {
		t.Fatalf("%d notifications persisted after rollback", n)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("email queued for a rolled back settlement: %+v", f.notifier.sent)
	}
}

func TestExpenseAccessRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.CreateExpense(ctx, f.group, f.b, ExpenseInput{Description: "Taxi", Amount: amount("12")})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.GetExpense(ctx, e.ID, f.b); err != nil {
		t.Errorf("payer GetExpense: %v", err)
	}
	if _, err := f.svc.GetExpense(ctx, e.ID, f.a); err != nil {
		t.Errorf("admin GetExpense: %v", err)
	}
	if _, err := f.svc.GetExpense(ctx, e.ID, f.c); !errors.Is(err, utils.ErrPermissionDenied) {
		t.Errorf("member GetExpense err = %v, want permission denied", err)
	}
	if _, err := f.svc.ListShares(ctx, e.ID, f.outsider); !errors.Is(err, utils.ErrPermissionDenied) {
		t.Errorf("outsider ListShares err = %v, want permission denied", err)
	}
	if err := f.svc.DeleteExpense(ctx, e.ID, f.c); !errors.Is(err, utils.ErrPermissionDenied) {
		t.Errorf("member DeleteExpense err = %v, want permission denied", err)
	}
	if _, err := f.svc.GetExpense(ctx, 4242, f.a); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("missing GetExpense err = %v, want not found", err)
	}
}

func TestListExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, in := range []ExpenseInput{
		{Description: "old", Amount: amount("1"), Date: "2025-01-01"},
		{Description: "new", Amount: amount("2"), Date: "2025-02-01"},
	} {
		if _, err := f.svc.CreateExpense(ctx, f.group, f.a, in); err != nil {
			t.Fatal(err)
		}
	}

	got, err := f.svc.ListExpenses(ctx, f.group, f.c)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Description != "new" {
		t.Fatalf("expenses = %+v, want newest first", got)
	}

	got, err = f.svc.ListExpenses(ctx, f.group, f.outsider)
	if err != nil {
		t.Fatalf("outsider ListExpenses: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("outsider sees %d expenses", len(got))
	}

	if _, err := f.svc.ListExpenses(ctx, 9999, f.a); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("unknown group err = %v", err)
	}
}

func TestUpdateExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.CreateExpense(ctx, f.group, f.b, ExpenseInput{Description: "Taxi", Amount: amount("12")})
	if err != nil {
		t.Fatal(err)
	}

	desc, date := "Airport taxi", "2025-02-28"
	same := amount("12.00")
	got, err := f.svc.UpdateExpense(ctx, e.ID, f.b, ExpenseUpdate{Description: &desc, Date: &date, Amount: &same})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if got.Description != desc || got.Date != date {
		t.Fatalf("updated = %+v", got)
	}

	changed := amount("15")
	if _, err := f.svc.UpdateExpense(ctx, e.ID, f.b, ExpenseUpdate{Amount: &changed}); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("amount change err = %v, want validation error", err)
	}
	if _, err := f.svc.UpdateExpense(ctx, e.ID, f.c, ExpenseUpdate{Description: &desc}); !errors.Is(err, utils.ErrPermissionDenied) {
		t.Fatalf("member update err = %v, want permission denied", err)
	}

	stored, err := f.svc.GetExpense(ctx, e.ID, f.a)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Description != desc || !stored.Amount.Equal(amount("12")) {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestDeleteExpenseRemovesShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.CreateExpense(ctx, f.group, f.b, ExpenseInput{Description: "Taxi", Amount: amount("12")})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteExpense(ctx, e.ID, f.a); err != nil {
		t.Fatalf("admin DeleteExpense: %v", err)
	}

	if n := testutil.CountRows(t, f.db, "group_expense_shares", "expense_id = ?", e.ID); n != 0 {
		t.Fatalf("%d shares left after delete", n)
	}
	if err := f.svc.DeleteExpense(ctx, e.ID, f.a); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("second delete err = %v, want not found", err)
	}
}

func TestCreateSettlementNotifiesPayee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateSettlement(ctx, f.group, f.b, SettlementInput{PaidTo: f.a, Amount: amount("30")})
	if err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}
	if res.Settlement.PaidBy != f.b || res.Warnings != nil {
		t.Fatalf("result = %+v", res)
	}

	page, err := f.svc.ListNotifications(ctx, f.a, Page{})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Unread != 1 {
		t.Fatalf("notifications = %+v", page)
	}
	n := page.Items[0]
	if n.IsRead {
		t.Fatal("new notification is already read")
	}
	if want := "b@example.com paid you 30.00 in group 'Flat'"; n.Message != want {
		t.Fatalf("message = %q, want %q", n.Message, want)
	}

	if len(f.notifier.sent) != 1 || f.notifier.sent[0].To != "a@example.com" {
		t.Fatalf("queued emails = %+v", f.notifier.sent)
	}
	if !strings.Contains(f.notifier.sent[0].HTMLBody, "30.00") {
		t.Fatal("email body does not mention the amount")
	}

	got, err := f.svc.MarkNotificationRead(ctx, n.ID, f.a)
	if err != nil || !got.IsRead {
		t.Fatalf("MarkNotificationRead = %+v, %v", got, err)
	}
	got, err = f.svc.MarkNotificationRead(ctx, n.ID, f.a)
	if err != nil || !got.IsRead {
		t.Fatalf("second MarkNotificationRead = %+v, %v", got, err)
	}
	if _, err := f.svc.MarkNotificationRead(ctx, n.ID, f.b); !errors.Is(err, utils.ErrPermissionDenied) {
		t.Fatalf("other user mark read err = %v", err)
	}

	page, _ = f.svc.ListNotifications(ctx, f.a, Page{})
	if page.Unread != 0 || !page.Items[0].IsRead {
		t.Fatalf("after mark read = %+v", page)
	}
}

func TestCreateSettlementValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  int64
		input   SettlementInput
		wantErr error
	}{
		{"self settlement", f.a, SettlementInput{PaidTo: f.a, Amount: amount("5")}, utils.ErrValidation},
		{"explicit self settlement", f.a, SettlementInput{PaidBy: f.b, PaidTo: f.b, Amount: amount("5")}, utils.ErrValidation},
		{"missing payee", f.a, SettlementInput{Amount: amount("5")}, utils.ErrValidation},
		{"zero amount", f.a, SettlementInput{PaidTo: f.b, Amount: decimal.Zero}, utils.ErrValidation},
		{"payee outside group", f.a, SettlementInput{PaidTo: f.outsider, Amount: amount("5")}, utils.ErrValidation},
		{"caller outside group", f.outsider, SettlementInput{PaidBy: f.b, PaidTo: f.a, Amount: amount("5")}, utils.ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateSettlement(ctx, f.group, tt.caller, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if n := testutil.CountRows(t, f.db, "group_settlements", ""); n != 0 {
		t.Fatalf("%d settlements persisted", n)
	}
	if n := testutil.CountRows(t, f.db, "notifications", ""); n != 0 {
		t.Fatalf("%d notifications persisted", n)
	}
}

func TestCreateSettlementOnBehalfOfAnotherMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateSettlement(ctx, f.group, f.a, SettlementInput{PaidBy: f.b, PaidTo: f.c, Amount: amount("5")})
	if err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}
	if res.Settlement.PaidBy != f.b {
		t.Fatalf("paid_by = %d, want %d", res.Settlement.PaidBy, f.b)
	}

	strict := newFixture(t, WithSelfSettlementOnly(true))
	_, err = strict.svc.CreateSettlement(ctx, strict.group, strict.a, SettlementInput{PaidBy: strict.b, PaidTo: strict.c, Amount: amount("5")})
	if !errors.Is(err, utils.ErrPermissionDenied) {
		t.Fatalf("strict mode err = %v, want permission denied", err)
	}
}

func TestCreateSettlementSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = utils.ErrExternalDelivery

	res, err := f.svc.CreateSettlement(context.Background(), f.group, f.b, SettlementInput{PaidTo: f.a, Amount: amount("10")})
	if err != nil {
		t.Fatalf("CreateSettlement: %v", err)
	}
	if res.Warnings["notifier"] == "" {
		t.Fatalf("warnings = %v, want notifier warning", res.Warnings)
	}
	if n := testutil.CountRows(t, f.db, "group_settlements", ""); n != 1 {
		t.Fatalf("%d settlements persisted, want 1", n)
	}
	if n := testutil.CountRows(t, f.db, "notifications", "user_id = ?", f.a); n != 1 {
		t.Fatalf("%d notifications persisted, want 1", n)
	}
}

func TestSettlementReadAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateSettlement(ctx, f.group, f.b, SettlementInput{PaidTo: f.a, Amount: amount("10")})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.GetSettlement(ctx, res.Settlement.ID, f.c); err != nil {
		t.Errorf("member GetSettlement: %v", err)
	}
	if _, err := f.svc.GetSettlement(ctx, res.Settlement.ID, f.outsider); !errors.Is(err, utils.ErrPermissionDenied) {
		t.Errorf("outsider GetSettlement err = %v", err)
	}

	list, err := f.svc.ListSettlements(ctx, f.group, f.outsider)
	if err != nil || len(list) != 0 {
		t.Errorf("outsider ListSettlements = %v, %v", list, err)
	}
	list, err = f.svc.ListSettlements(ctx, f.group, f.c)
	if err != nil || len(list) != 1 {
		t.Errorf("member ListSettlements = %v, %v", list, err)
	}
}

func TestComputeBalancesExample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateExpense(ctx, f.group, f.a, ExpenseInput{Description: "Dinner", Amount: amount("90.00")}); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.ComputeBalances(ctx, f.group, f.c)
	if err != nil {
		t.Fatal(err)
	}
	if owed := AmountOwed(got.Balances, f.b, f.a); !owed.Equal(amount("30")) {
		t.Fatalf("b owes a %s, want 30.00", owed)
	}
	if owed := AmountOwed(got.Balances, f.c, f.a); !owed.Equal(amount("30")) {
		t.Fatalf("c owes a %s, want 30.00", owed)
	}

	if _, err := f.svc.CreateSettlement(ctx, f.group, f.b, SettlementInput{PaidTo: f.a, Amount: amount("30.00")}); err != nil {
		t.Fatal(err)
	}

	got, err = f.svc.ComputeBalances(ctx, f.group, f.a)
	if err != nil {
		t.Fatal(err)
	}
	if owed := AmountOwed(got.Balances, f.b, f.a); !owed.IsZero() {
		t.Fatalf("b owes a %s after settling, want 0", owed)
	}
	if owed := AmountOwed(got.Balances, f.c, f.a); !owed.Equal(amount("30")) {
		t.Fatalf("c owes a %s, want 30.00", owed)
	}

	again, err := f.svc.ComputeBalances(ctx, f.group, f.a)
	if err != nil {
		t.Fatal(err)
	}
	if a, b := mustJSON(t, got), mustJSON(t, again); a != b {
		t.Fatalf("ComputeBalances not idempotent:\n%s\n%s", a, b)
	}

	if _, err := f.svc.ComputeBalances(ctx, f.group, f.outsider); !errors.Is(err, utils.ErrPermissionDenied) {
		t.Fatalf("outsider ComputeBalances err = %v", err)
	}
}

func TestListNotificationsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.CreateSettlement(ctx, f.group, f.b, SettlementInput{PaidTo: f.a, Amount: amount("1")}); err != nil {
			t.Fatal(err)
		}
	}

	first, err := f.svc.ListNotifications(ctx, f.a, Page{Page: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.ListNotifications(ctx, f.a, Page{Page: 2, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Items) != 2 || len(second.Items) != 1 {
		t.Fatalf("pages = %d + %d items", len(first.Items), len(second.Items))
	}
	if first.Items[0].ID < first.Items[1].ID || first.Items[1].ID < second.Items[0].ID {
		t.Fatal("notifications not ordered newest first")
	}
	if first.Unread != 3 {
		t.Fatalf("unread = %d, want 3", first.Unread)
	}

	other, err := f.svc.ListNotifications(ctx, f.b, Page{})
	if err != nil || len(other.Items) != 0 {
		t.Fatalf("payer notifications = %+v, %v", other, err)
	}
}
